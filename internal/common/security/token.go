// Package security seals customer ids into opaque session tokens.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidCustomerToken = errors.New("CUSTOMER_TOKEN_INVALID")
	ErrMissingSecret        = errors.New("token secret is empty")
)

const keyInfo = "loan-assistant customer token v1"

// TokenCodec encodes customer ids as XChaCha20-Poly1305 sealed, base64url
// tokens and decodes them back.
type TokenCodec struct {
	key []byte
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}
	return &TokenCodec{key: key}, nil
}

func (c *TokenCodec) Encode(customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("customer id is empty")
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(customerID)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(customerID), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode returns the customer id sealed in token. Any malformed, truncated or
// tampered token yields ErrInvalidCustomerToken.
func (c *TokenCodec) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCustomerToken, err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: token too short", ErrInvalidCustomerToken)
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCustomerToken, err)
	}
	if len(plain) == 0 {
		return "", fmt.Errorf("%w: empty customer id", ErrInvalidCustomerToken)
	}
	return string(plain), nil
}
