package security

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the minimum length of the configured session secret.
	MinSecretLength = 32

	// cookieHashKeyLength sizes the HMAC key used by the cookie codec.
	cookieHashKeyLength = 64

	// cookieBlockKeyLength sizes the AES-256 key used to encrypt cookie
	// payloads.
	cookieBlockKeyLength = 32
)

// DeriveCookieKeys derives the cookie signing and encryption keys from the
// single configured session secret using HKDF-SHA256. Distinct info strings
// keep the two keys cryptographically independent even though they share the
// same input secret, so operators only have to manage one value.
func DeriveCookieKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	if len(secret) < MinSecretLength {
		return nil, nil, fmt.Errorf("session secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}

	hashKey, err = expandKey(secret, "oidc-session/cookie-hash", cookieHashKeyLength)
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = expandKey(secret, "oidc-session/cookie-block", cookieBlockKeyLength)
	if err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

func expandKey(secret []byte, info string, length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}

// SecretFromBase64 decodes a base64-encoded session secret.
func SecretFromBase64(s string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 secret: %w", err)
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return secret, nil
}
