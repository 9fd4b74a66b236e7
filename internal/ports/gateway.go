package ports

import (
	"context"
	"encoding/json"
)

const (
	GatewayStatusPending    = "pending"
	GatewayStatusSuccessful = "successful"
	GatewayStatusFailed     = "failed"
)

type ChargeRequest struct {
	Reference     string
	Amount        int64
	Currency      string
	PaymentMethod string
	Phone         string
	Email         string
	FullName      string
	Narration     string
}

type ChargeResult struct {
	Provider         string
	GatewayReference string
	Status           string
	RedirectURL      string
	Raw              json.RawMessage
}

// ChargeStatus is the gateway's view of a collection, as returned by verification.
type ChargeStatus struct {
	Reference        string
	GatewayReference string
	GatewayID        string
	Status           string
	Amount           int64
	Currency         string
	Raw              json.RawMessage
}

type TransferRequest struct {
	Reference       string
	PaymentMethod   string
	Phone           string
	BeneficiaryName string
	Narration       string
	Amount          int64
	Currency        string
}

type TransferResult struct {
	Provider   string
	TransferID string
	Reference  string
	Status     string
	Raw        json.RawMessage
}

// PaymentGateway is the outbound side of a mobile-money provider.
// Errors wrap domain.ErrGatewayRejected or domain.ErrGatewayUnavailable.
type PaymentGateway interface {
	ProviderFor(paymentMethod string) string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	VerifyCharge(ctx context.Context, paymentMethod, reference string) (ChargeStatus, error)
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	TransferStatus(ctx context.Context, paymentMethod, transferID string) (TransferResult, error)
}

const (
	GatewayEventCharge   = "charge"
	GatewayEventTransfer = "transfer"
)

// GatewayEvent is a provider webhook normalized for the application layer.
type GatewayEvent struct {
	EventID          string          `json:"event_id"`
	Kind             string          `json:"kind"`
	GatewayID        string          `json:"gateway_id"`
	Reference        string          `json:"reference"`
	GatewayReference string          `json:"gateway_reference"`
	Status           string          `json:"status"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

type WebhookSignature struct {
	VerifHash string
	Signature string
}

type WebhookVerifier interface {
	Verify(body []byte, sig WebhookSignature) error
}

type WebhookParser interface {
	Parse(body []byte) (GatewayEvent, error)
}
