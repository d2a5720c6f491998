package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// HealthChecker はヘルスチェックに必要なインターフェース。sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface

	// 鍵公開
	Keys KeySource

	// ユーザー参照（管理者用）
	UserService UserServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	RequestMetrics middleware.HTTPMetricsRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Authn(注釈のみ)
//
// 認証ゲートウェイ（Authn）は全ルートに適用されるが、リクエストを拒否しない。
// 拒否はエンドポイントごとのRequireAuth/RequireRoleが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.RequestMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.RequestMetrics))
	}
	r.Use(middleware.NewAuthnMiddleware(deps.Verifier, deps.UserFinder))

	authHandler := NewAuthHandler(deps.AuthService)
	jwksHandler := NewJWKSHandler(deps.Keys)
	userHandler := NewUserHandler(deps.UserService)

	// --- 運用エンドポイント（レート制限の対象外） ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 公開エンドポイント ---

	r.Get("/.well-known/jwks.json", jwksHandler.ServeJWKS)

	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ログインはブルートフォース対策の専用レート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		// 認証必須
		r.With(middleware.RequireAuth()).Get("/me", authHandler.Me)
	})

	// --- 管理者専用エンドポイント ---

	r.Route("/api/users", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.RequireRole(model.RoleAdmin))

		r.Get("/", userHandler.ListUsers)
	})

	return r
}

// newHealthHandler はDB疎通込みのヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
