package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier は平文パスワードと保存済みハッシュの照合を行う。
// ハッシュの生成方式はこのサービスの関心外であり、照合のみを契約とする。
type PasswordVerifier interface {
	// Verify はplainがhashに対応する場合にtrueを返す。
	Verify(plain, hash string) bool
}

// BcryptVerifier はbcryptによるPasswordVerifierの実装。
type BcryptVerifier struct{}

// Verify はbcryptハッシュとの照合を行う。
// 不正な形式のハッシュはfalseを返す（panicしない）。
func (BcryptVerifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPassword はbcryptハッシュを生成する。テストおよびシード用。
// ユーザー登録は外部サービスの責務であり、本サービスのリクエスト経路では使用しない。
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// compile-time interface check
var _ PasswordVerifier = BcryptVerifier{}
