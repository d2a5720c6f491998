// Package auth はログイン・トークンリフレッシュ・ログアウトのビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/token"
)

// 認証処理の失敗種別。ハンドラー層でHTTPステータスとAPIErrorに写像する。
var (
	// ErrInvalidCredentials は資格情報の不一致を表す。
	// メールアドレスが未登録の場合もこれに正規化する（存在有無のオラクルを作らない）。
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified はメール未確認アカウントを表す。
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrAccountLocked はロック済みアカウントを表す。
	ErrAccountLocked = errors.New("account is locked")
	// ErrRefreshTokenNotFound は未知のリフレッシュトークン値を表す。
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired は期限切れのリフレッシュトークンを表す。
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrRefreshTokenRevoked は失効済みリフレッシュトークンを表す。
	// ローテーション済みトークンの再利用、および並行ローテーションの敗者もこれになる。
	ErrRefreshTokenRevoked = errors.New("refresh token already revoked")
)

// TokenPair はログイン・リフレッシュ成功時に返すトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// TokenIssuer はアクセストークンの発行インターフェース。
// token.Issuerの部分集合として定義する。
type TokenIssuer interface {
	Issue(subject string, claims token.AppClaims) (string, error)
}

// MetricsRecorder は認証操作のメトリクス記録インターフェース。
// metrics.Collectorが実装する。nilを渡した場合は記録しない。
type MetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordTokenIssued()
	RecordRefreshRotation()
	RecordRefreshReplayRejected()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RefreshTokenTTL time.Duration // リフレッシュトークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	issuer      TokenIssuer
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	passwords   PasswordVerifier
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(
	issuer TokenIssuer,
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	passwords PasswordVerifier,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		issuer:      issuer,
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		passwords:   passwords,
		metrics:     metrics,
		config:      config,
	}
}

// Login は資格情報を検証し、アクセストークンとリフレッシュトークンの組を発行する。
// 未登録メールとパスワード不一致はどちらもErrInvalidCredentialsに正規化する。
// アカウント状態の検査はパスワード照合の後に行う
// （正しいパスワードを知らない相手にロック状態を教えない）。
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordLoginFailure("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		s.metrics.RecordLoginFailure("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if err := checkAccountState(user); err != nil {
		s.metrics.RecordLoginFailure("account_state")
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	// last_loginの更新失敗はログイン自体を失敗させない
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.RecordLoginSuccess()
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh は提示されたリフレッシュトークンを新しいトークンペアに交換する。
// 旧トークンの失効と代替の作成は単一トランザクションで行われ、
// 同一トークン値への並行呼び出しはちょうど1つだけ成功する。
// アカウント状態はローテーション時にも再検査する
// （ログイン後にロック・無効化されたアカウントへの多層防御）。
func (s *Service) Refresh(ctx context.Context, tokenValue string) (*TokenPair, error) {
	rt, err := s.refreshRepo.FindByToken(ctx, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	if rt == nil {
		return nil, ErrRefreshTokenNotFound
	}
	if rt.Expired(time.Now()) {
		return nil, ErrRefreshTokenExpired
	}
	if rt.Revoked {
		s.metrics.RecordRefreshReplayRejected()
		return nil, ErrRefreshTokenRevoked
	}

	user, err := s.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find token owner: %w", err)
	}
	if user == nil {
		// 所有者が消えたトークンは未知のトークンとして扱う
		return nil, ErrRefreshTokenNotFound
	}

	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	replacement := s.newRefreshToken(user.ID)
	ok, err := s.refreshRepo.RevokeAndCreate(ctx, tokenValue, replacement)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !ok {
		// 事前チェックの後に別の呼び出しが同じトークンをローテーションした
		s.metrics.RecordRefreshReplayRejected()
		return nil, ErrRefreshTokenRevoked
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRefreshRotation()
	slog.Info("refresh token rotated", slog.String("user_id", user.ID))
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: replacement.Token,
		TokenType:    "Bearer",
	}, nil
}

// Logout は提示されたリフレッシュトークンを失効させる。
// 存在しない・既に失効済みのトークンもエラーにしない（冪等）。
// エラー応答からトークンの有効性が推測できないようにするための仕様。
func (s *Service) Logout(ctx context.Context, tokenValue string) error {
	if _, err := s.refreshRepo.MarkRevoked(ctx, tokenValue); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// CurrentUser は認証済みユーザーIDからユーザーを取得する。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return user, nil
}

// ListUsers は全ユーザーを取得する。管理者用。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// issueTokenPair はアクセストークンと新規リフレッシュトークンを発行する。
func (s *Service) issueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	rt := s.newRefreshToken(user.ID)
	if err := s.refreshRepo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rt.Token,
		TokenType:    "Bearer",
	}, nil
}

// issueAccessToken はユーザーのクレームを載せたアクセストークンを発行する。
// subjectにはメールアドレスを使う（検証側はsubからユーザーを解決する）。
func (s *Service) issueAccessToken(user *model.User) (string, error) {
	accessToken, err := s.issuer.Issue(user.Email, token.AppClaims{
		UserID:        user.ID,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	s.metrics.RecordTokenIssued()
	return accessToken, nil
}

// newRefreshToken は新しいリフレッシュトークンレコードを組み立てる（永続化はしない）。
func (s *Service) newRefreshToken(userID string) *model.RefreshToken {
	now := time.Now()
	return &model.RefreshToken{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
		Revoked:   false,
		CreatedAt: now,
	}
}

// checkAccountState はアカウント状態が資格情報の発行を許可するかを検査する。
func checkAccountState(user *model.User) error {
	if !user.EmailVerified {
		return ErrEmailNotVerified
	}
	if user.AccountLocked {
		return ErrAccountLocked
	}
	return nil
}

// noopMetrics はメトリクス未設定時のプレースホルダー。
type noopMetrics struct{}

func (noopMetrics) RecordLoginSuccess()          {}
func (noopMetrics) RecordLoginFailure(string)    {}
func (noopMetrics) RecordTokenIssued()           {}
func (noopMetrics) RecordRefreshRotation()       {}
func (noopMetrics) RecordRefreshReplayRejected() {}
