// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/token"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みアイデンティティを格納するためのキー。
var identityContextKey = contextKey("auth_identity")

// Identity は認証済みリクエストの主体を表す。
// リクエストの生存期間だけ有効で、コンテキスト経由で後段に伝搬する。
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenVerifier はアクセストークンの検証インターフェース。
// token.Issuerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// UserFinder はトークンのsubjectからユーザーを解決するインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// NewAuthnMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 成功した場合のみ認証済みアイデンティティをリクエストコンテキストに注入する
// ミドルウェアを返す。
//
// このミドルウェア自体はリクエストを拒否しない。ヘッダーの欠如・不正形式・
// 検証失敗・未知のsubjectはいずれもエラーではなく、リクエストを未認証のまま
// 後段に渡す。アクセス可否の判断はエンドポイント側のRequireAuth/RequireRoleが行う。
func NewAuthnMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, bearerPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimPrefix(h, bearerPrefix)

			// 事前チェック: subjectすら取り出せない入力は署名検証を試みる価値がない。
			// これは認証判断ではない（完全検証を行うかどうかの振り分けのみ）。
			if _, err := token.ExtractSubjectUnverified(raw); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				// 失敗種別はログにも出さない（正規化された未認証扱い）
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByEmail(r.Context(), claims.Subject)
			if err != nil {
				slog.Error("failed to resolve token subject",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithIdentity(r.Context(), &Identity{
				UserID: user.ID,
				Email:  user.Email,
				Role:   user.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みアイデンティティを取得する。
// 認証ミドルウェアで検証に成功したリクエストでのみ取得できる。
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}

// ContextWithIdentity はコンテキストにアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
