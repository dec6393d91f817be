// Package cryptox encrypts PII columns before they reach the database.
//
// A FieldCipher derives two independent keys from one secret with HKDF-SHA256:
// an AES-256-GCM key for reversible encryption and an HMAC-SHA256 key for the
// blind index used to look rows up by email without storing it in clear.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

type FieldCipher struct {
	aead    cipher.AEAD
	hashKey []byte
}

func NewFieldCipher(secret string) (*FieldCipher, error) {
	if len(secret) < keySize {
		return nil, fmt.Errorf("secret must be at least %d bytes", keySize)
	}

	encKey, err := deriveKey(secret, "pii-encryption")
	if err != nil {
		return nil, err
	}
	hashKey, err := deriveKey(secret, "pii-blind-index")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &FieldCipher{aead: aead, hashKey: hashKey}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}

	plaintext, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

// HashEmail returns the hex blind index of a normalized email address.
func (c *FieldCipher) HashEmail(email string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(mac.Sum(nil))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
