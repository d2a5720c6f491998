package handler

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
)

// KeySource はJWKSハンドラーが必要とする公開鍵情報のインターフェース。
// keys.Managerの部分集合として定義する。
type KeySource interface {
	PublicKey() *rsa.PublicKey
	KeyID() string
}

// JWKSHandler は公開鍵ディスカバリードキュメントを提供する。
type JWKSHandler struct {
	keys KeySource
}

// NewJWKSHandler はJWKSHandlerを生成する。
func NewJWKSHandler(keys KeySource) *JWKSHandler {
	return &JWKSHandler{keys: keys}
}

// jwkKey はRFC 7517のJSON Web Key表現。
type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// ServeJWKS は公開鍵をJWKS形式で返す。
// 外部サービスはこのドキュメントとトークンのkidヘッダーで署名を検証できる。
// GET /.well-known/jwks.json
func (h *JWKSHandler) ServeJWKS(w http.ResponseWriter, r *http.Request) {
	pub := h.keys.PublicKey()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jwksResponse{
		Keys: []jwkKey{{
			Kty: "RSA",
			Use: "sig",
			Kid: h.keys.KeyID(),
			Alg: "RS256",
			N:   b64BigInt(pub.N),
			E:   b64BigInt(big.NewInt(int64(pub.E))),
		}},
	})
}

// b64BigInt はビッグエンディアンの最小表現（先頭ゼロバイトなし）を
// パディングなしbase64urlでエンコードする。
func b64BigInt(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}
