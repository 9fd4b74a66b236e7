package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier checks service-to-service keys against a stored bcrypt hash.
type APIKeyVerifier struct {
	hash []byte
}

func NewAPIKeyVerifier(hash string) *APIKeyVerifier {
	return &APIKeyVerifier{hash: []byte(hash)}
}

// Enabled is false when no hash is configured and internal calls are unauthenticated.
func (v *APIKeyVerifier) Enabled() bool {
	return v != nil && len(v.hash) > 0
}

func (v *APIKeyVerifier) Verify(key string) error {
	if !v.Enabled() {
		return nil
	}
	if key == "" {
		return errors.New("api key is required")
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(key))
}

// HashAPIKey produces the value stored in configuration for an internal API key.
func HashAPIKey(key string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
