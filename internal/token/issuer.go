// Package token はアクセストークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/authgate/internal/keys"
)

// 検証失敗の種別。
// APIレスポンスではこれらを区別せず、単一の未認証応答に正規化する
// （middleware.WriteErrorResponse + model.NewUnauthorizedError参照）。
var (
	// ErrMalformedToken はトークンとして解析できない入力を表す。
	ErrMalformedToken = errors.New("malformed token")
	// ErrSignatureInvalid は署名不正、またはissuer/audience不一致の外来トークンを表す。
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired は署名は正しいが期限切れのトークンを表す。
	ErrTokenExpired = errors.New("token expired")
)

// AppClaims はアクセストークンに載せるアプリケーションクレームの固定型。
// 任意のmapを許すと直列化バグの温床になるため、フィールドを明示する。
type AppClaims struct {
	UserID        string
	Role          string
	EmailVerified bool
}

// Claims はJWTペイロード全体を表す。
type Claims struct {
	UserID        string `json:"uid"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Config はトークン発行・検証の設定を保持する。
type Config struct {
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
}

// Issuer はアクセストークンの発行と検証を行う。
// 鍵状態はkeys.Manager経由の読み取りのみで、発行・検証ともに副作用を持たない。
type Issuer struct {
	keys   *keys.Manager
	config Config
}

// NewIssuer はIssuerを生成する。
func NewIssuer(km *keys.Manager, cfg Config) *Issuer {
	return &Issuer{keys: km, config: cfg}
}

// Issue は署名付きアクセストークンを発行する。
// iss/audは設定値、iat=now、exp=now+AccessTokenTTL、ヘッダーに署名鍵のkidを含める。
func (i *Issuer) Issue(subject string, claims AppClaims) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID:        claims.UserID,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Audience:  jwt.ClaimStrings{i.config.Audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.AccessTokenTTL)),
		},
	})
	t.Header["kid"] = i.keys.KeyID()

	signed, err := t.SignedString(i.keys.SigningKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 全認証付きリクエスト（敵対的入力を含む）で実行されるため、
// どんな入力に対してもpanicせず成功または型付きエラーを返す全域関数として実装する。
// RS256以外のalgヘッダーは鍵混同攻撃を防ぐため無条件に拒否する。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return i.keys.PublicKey(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithAudience(i.config.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenInvalidIssuer),
			errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformedToken
		}
	}

	return claims, nil
}

// ExtractSubjectUnverified は署名検証なしでsubjectクレームを取り出す。
// ゲートウェイが完全検証を試みるかどうかの事前判定専用であり、
// 単独で認証判断に使ってはならない。
func ExtractSubjectUnverified(tokenString string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
