package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	fieldCipherVersion = "v1"
	fieldCipherSalt    = "craftsmart-escrow-field-cipher"
)

var ErrCiphertext = errors.New("malformed field ciphertext")

// FieldCipher is AES-256-GCM with a key derived from the configured secret.
// The scope is bound as additional data so a value copied to another row fails to open.
type FieldCipher struct {
	aead cipher.AEAD
}

func NewFieldCipher(secret string) (*FieldCipher, error) {
	if len(secret) < 16 {
		return nil, errors.New("field cipher secret must be at least 16 bytes")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), []byte(fieldCipherSalt), []byte("phone")), key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

func (c *FieldCipher) Encrypt(scope, value string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), []byte(scope))
	return fieldCipherVersion + ":" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *FieldCipher) Decrypt(scope, payload string) (string, error) {
	version, encoded, ok := strings.Cut(payload, ":")
	if !ok || version != fieldCipherVersion {
		return "", ErrCiphertext
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return "", ErrCiphertext
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plain), nil
}
