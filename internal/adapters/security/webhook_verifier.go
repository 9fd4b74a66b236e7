package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// WebhookVerifier accepts a callback carrying either the shared verif-hash or an HMAC-SHA256 body signature.
type WebhookVerifier struct {
	secretHash []byte
	hmacSecret []byte
}

func NewWebhookVerifier(secretHash, hmacSecret string) *WebhookVerifier {
	return &WebhookVerifier{secretHash: []byte(secretHash), hmacSecret: []byte(hmacSecret)}
}

func (v *WebhookVerifier) Verify(body []byte, sig ports.WebhookSignature) error {
	if sig.VerifHash != "" && len(v.secretHash) > 0 {
		if subtle.ConstantTimeCompare([]byte(sig.VerifHash), v.secretHash) == 1 {
			return nil
		}
	}
	if sig.Signature != "" && len(v.hmacSecret) > 0 {
		given, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sig.Signature), "sha256="))
		if err == nil {
			mac := hmac.New(sha256.New, v.hmacSecret)
			mac.Write(body)
			if hmac.Equal(given, mac.Sum(nil)) {
				return nil
			}
		}
	}
	return domain.ErrInvalidSignature
}

// SignBody returns the hex signature a sender would put in the signature header.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
