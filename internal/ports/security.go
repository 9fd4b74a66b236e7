package ports

import "time"

// AuthClaims are the verified bearer-token claims of the calling actor.
type AuthClaims struct {
	SubjectID string
	Role      string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	KeyID     string
}

type TokenVerifier interface {
	ParseAndValidate(raw string) (AuthClaims, error)
}

type TokenSigner interface {
	TokenVerifier
	Sign(claims AuthClaims) (string, error)
}

// FieldCipher encrypts individual column values. Scope binds ciphertext to its owning row.
type FieldCipher interface {
	Encrypt(scope, value string) (string, error)
	Decrypt(scope, payload string) (string, error)
}
