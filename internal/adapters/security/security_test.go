package security

import (
	"testing"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("test-kid")
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := signer.Sign(ports.AuthClaims{
		SubjectID: "emp-1",
		Role:      domain.RoleEmployer,
		Name:      "Grace",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	claims, err := signer.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.SubjectID)
	assert.Equal(t, domain.RoleEmployer, claims.Role)
	assert.Equal(t, "Grace", claims.Name)
	assert.Equal(t, "test-kid", claims.KeyID)
}

func TestJWTSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	signer, err := NewEphemeralJWTSigner("a")
	require.NoError(t, err)
	other, err := NewEphemeralJWTSigner("b")
	require.NoError(t, err)

	now := time.Now().UTC()
	foreign, err := other.Sign(ports.AuthClaims{SubjectID: "x", Role: domain.RoleAdmin, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = signer.ParseAndValidate(foreign)
	assert.Error(t, err)

	expired, err := signer.Sign(ports.AuthClaims{SubjectID: "x", Role: domain.RoleAdmin, IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = signer.ParseAndValidate(expired)
	assert.Error(t, err)
}

func TestWebhookVerifier(t *testing.T) {
	body := []byte(`{"event":"charge.completed"}`)
	v := NewWebhookVerifier("hash-123", "hmac-secret")

	assert.NoError(t, v.Verify(body, ports.WebhookSignature{VerifHash: "hash-123"}))
	assert.NoError(t, v.Verify(body, ports.WebhookSignature{Signature: SignBody("hmac-secret", body)}))
	assert.NoError(t, v.Verify(body, ports.WebhookSignature{Signature: "sha256=" + SignBody("hmac-secret", body)}))

	assert.ErrorIs(t, v.Verify(body, ports.WebhookSignature{VerifHash: "wrong"}), domain.ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, ports.WebhookSignature{Signature: SignBody("other", body)}), domain.ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, ports.WebhookSignature{Signature: "not-hex"}), domain.ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, ports.WebhookSignature{}), domain.ErrInvalidSignature)

	hashOnly := NewWebhookVerifier("hash-123", "")
	assert.ErrorIs(t, hashOnly.Verify(body, ports.WebhookSignature{Signature: SignBody("", body)}), domain.ErrInvalidSignature)
}

func TestFieldCipherBindsScope(t *testing.T) {
	c, err := NewFieldCipher("0123456789abcdef-secret")
	require.NoError(t, err)

	sealed, err := c.Encrypt("transaction:1", "256772123456")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "256772123456")

	again, err := c.Encrypt("transaction:1", "256772123456")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	plain, err := c.Decrypt("transaction:1", sealed)
	require.NoError(t, err)
	assert.Equal(t, "256772123456", plain)

	_, err = c.Decrypt("transaction:2", sealed)
	assert.ErrorIs(t, err, ErrCiphertext)
	_, err = c.Decrypt("transaction:1", "256772123456")
	assert.ErrorIs(t, err, ErrCiphertext)

	_, err = NewFieldCipher("short")
	assert.Error(t, err)
}

func TestAPIKeyVerifier(t *testing.T) {
	hash, err := HashAPIKey("internal-key", bcrypt.MinCost)
	require.NoError(t, err)

	v := NewAPIKeyVerifier(hash)
	assert.True(t, v.Enabled())
	assert.NoError(t, v.Verify("internal-key"))
	assert.Error(t, v.Verify("other"))
	assert.Error(t, v.Verify(""))

	open := NewAPIKeyVerifier("")
	assert.False(t, open.Enabled())
	assert.NoError(t, open.Verify(""))
}
