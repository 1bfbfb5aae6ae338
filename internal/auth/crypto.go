package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

func NewRandomToken(prefix string, bytesLen int) (string, error) {
	if bytesLen < 16 {
		bytesLen = 16
	}
	b := make([]byte, bytesLen)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("生成随机数失败: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveCookieKeys 从单一密钥派生 cookie 的签名 key（32 字节）与加密 key（AES-256）。
func DeriveCookieKeys(secret string) (hashKey []byte, blockKey []byte, err error) {
	if len(secret) < 16 {
		return nil, nil, errors.New("session secret 长度至少 16 位")
	}
	hashKey, err = deriveKey(secret, "streammall-admin cookie hash", 32)
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = deriveKey(secret, "streammall-admin cookie block", 32)
	if err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

func deriveKey(secret string, info string, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("派生密钥失败: %w", err)
	}
	return out, nil
}
