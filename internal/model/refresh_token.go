package model

import "time"

// RefreshToken は永続化されるリフレッシュトークンのレコードを表す。
// Tokenは推測不可能なランダム値（UUIDv4、122bitのエントロピー）でありレコードの主キー。
// Revokedはfalse→trueの単調変化のみ許し、レコードは物理削除しない
// （期限切れレコードの掃除は外部のハウスキーピングの責務）。
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired は指定時刻においてトークンが期限切れかを返す。
func (rt *RefreshToken) Expired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}
