package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	ErrCodeAccountLocked        = "ACCOUNT_LOCKED"
	ErrCodeRefreshTokenNotFound = "REFRESH_TOKEN_NOT_FOUND"
	ErrCodeRefreshTokenExpired  = "REFRESH_TOKEN_EXPIRED"
	ErrCodeRefreshTokenRevoked  = "REFRESH_TOKEN_REVOKED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// NewInvalidCredentialsError は資格情報エラーを生成する。
// メールアドレスの存在有無を漏らさないため、ユーザー未登録の場合も同じエラーを使う。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotVerifiedError はメール未確認エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスが確認されていません。",
		Category: "auth",
		Action:   "確認メールのリンクからメールアドレスを確認してください。",
	}
}

// NewAccountLockedError はアカウントロックエラーを生成する。
func NewAccountLockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountLocked,
		Message:  "アカウントがロックされています。",
		Category: "auth",
		Action:   "サポートにお問い合わせください。",
	}
}

// NewRefreshTokenNotFoundError はリフレッシュトークン未検出エラーを生成する。
func NewRefreshTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshTokenNotFound,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewRefreshTokenExpiredError はリフレッシュトークン期限切れエラーを生成する。
func NewRefreshTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshTokenExpired,
		Message:  "リフレッシュトークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewRefreshTokenRevokedError はリフレッシュトークン失効エラーを生成する。
// ローテーション済みトークンの再利用もこのエラーになる。
func NewRefreshTokenRevokedError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshTokenRevoked,
		Message:  "リフレッシュトークンは既に失効しています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// 署名不正・期限切れ・不正形式の区別はレスポンスに含めない
// （偽造と期限切れを区別するオラクル攻撃を防ぐ）。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "有効なアクセストークンをAuthorizationヘッダーに指定してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式を確認してください。",
	}
}
