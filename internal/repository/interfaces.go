// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/authgate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// ユーザーの作成・削除は外部の登録サービスの責務であり、ここでは読み取りと
// last_loginの更新のみを提供する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// UpdateLastLogin は最終ログイン時刻を更新する。
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// ListAll は全ユーザーを作成日時順に取得する。管理者用。
	ListAll(ctx context.Context) ([]*model.User, error)
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
// レコードの物理削除は提供しない（失効はRevokedフラグの単調変化で表現する）。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークンのレコードを作成する。
	Create(ctx context.Context, rt *model.RefreshToken) error

	// FindByToken はトークン値でレコードを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)

	// MarkRevoked はrevoked=falseのレコードをrevoked=trueに更新する。
	// 更新が起きた場合にtrueを返す。存在しない、または既に失効済みの場合はfalse。
	// revoked=falseの条件付きUPDATEであり、同一トークンへの並行呼び出しのうち
	// ちょうど1つだけがtrueを得る。
	MarkRevoked(ctx context.Context, token string) (bool, error)

	// RevokeAndCreate は旧トークンの失効と代替トークンの作成を
	// 同一トランザクションで実行する（ローテーションの原子性保証）。
	// 旧トークンの失効に成功した場合のみ代替を作成しtrueを返す。
	// 旧トークンが存在しないか既に失効済みの場合は何も作成せずfalseを返す。
	RevokeAndCreate(ctx context.Context, oldToken string, replacement *model.RefreshToken) (bool, error)
}
