// Package keys はトークン署名用のRSA鍵ペアとその識別子（kid）を管理する。
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const keyBits = 2048

// Config は鍵ペアの設定を保持する。
// PrivatePEM/PublicPEMが両方設定されている場合はその鍵ペアを使用し、
// 両方未設定の場合は起動時にエフェメラル鍵を生成する。片方のみの設定はエラー。
type Config struct {
	PrivatePEM string
	PublicPEM  string
}

// Manager は署名鍵ペアとkidを保持する。
// 起動時に1回構築し、以降イミュータブルとして扱う（並行読み取りにロック不要）。
// 秘密鍵はこのパッケージの外に出さず、署名はSigningKey経由でtokenパッケージのみが行う。
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	keyID      string
}

// NewManager はManagerを生成する。
// PEMの読み込みに失敗した場合はエラーを返し、呼び出し側は起動を中断しなければならない
// （壊れた鍵でトラフィックを受けてはならない）。
// 鍵が未設定の場合はRSA 2048bitの鍵ペアを生成し、エフェメラル鍵である旨を警告ログに出す。
// kidは鍵ペアの確立（読み込みまたは生成）ごとに1回割り当てる。
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{keyID: uuid.New().String()}

	if cfg.PrivatePEM != "" || cfg.PublicPEM != "" {
		if cfg.PrivatePEM == "" || cfg.PublicPEM == "" {
			return nil, errors.New("JWT keypair pinning requires both private and public PEM")
		}

		priv, err := parsePrivateKeyPEM([]byte(cfg.PrivatePEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key PEM: %w", err)
		}
		pub, err := parsePublicKeyPEM([]byte(cfg.PublicPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key PEM: %w", err)
		}

		m.privateKey = priv
		m.publicKey = pub
		slog.Info("JWT signing keypair loaded from configuration",
			slog.String("kid", m.keyID),
		)
		return m, nil
	}

	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA keypair: %w", err)
	}

	m.privateKey = priv
	m.publicKey = &priv.PublicKey
	// エフェメラル鍵は再起動で失われ、発行済みの全アクセストークンが無効になる。
	// 開発用途のみ許容し、本番ではJWT_PRIVATE_PEM/JWT_PUBLIC_PEMで鍵を固定すること。
	slog.Warn("ephemeral RSA keypair generated for JWT signing; set JWT_PRIVATE_PEM/JWT_PUBLIC_PEM for production",
		slog.String("kid", m.keyID),
	)
	return m, nil
}

// PublicKey は検証・公開用の公開鍵を返す。
func (m *Manager) PublicKey() *rsa.PublicKey {
	return m.publicKey
}

// KeyID はこの鍵ペアの識別子を返す。
// 発行するトークンのkidヘッダーとJWKSドキュメントのkidに使われる。
func (m *Manager) KeyID() string {
	return m.keyID
}

// SigningKey は署名用の秘密鍵を返す。tokenパッケージのIssuer専用。
func (m *Manager) SigningKey() *rsa.PrivateKey {
	return m.privateKey
}

// parsePrivateKeyPEM はPEMエンコードされたRSA秘密鍵を解析する。
// PKCS#8とPKCS#1の両形式を受け付ける。
func parsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unsupported private key format: %w", err)
	}
	return key, nil
}

// parsePublicKeyPEM はPEMエンコードされたRSA公開鍵を解析する。
// PKIX（SubjectPublicKeyInfo）とPKCS#1の両形式を受け付ける。
func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unsupported public key format: %w", err)
	}
	return key, nil
}
