// Package model はドメインモデルを定義する。
package model

import "time"

// ユーザーロール
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User は認証対象のユーザーアカウントを表す。
// 本サービスはユーザーの作成・プロフィール更新を所有しない。
// 読み取りとlast_loginの更新のみをリポジトリ経由で行う。
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          string
	EmailVerified bool
	AccountLocked bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
