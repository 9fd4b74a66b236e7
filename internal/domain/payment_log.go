package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	LogStatusInitiated  = "INITIATED"
	LogStatusProcessing = "PROCESSING"
	LogStatusSuccess    = "SUCCESS"
	LogStatusFailed     = "FAILED"
	LogStatusError      = "ERROR"
)

const (
	LogActionWebhook      = "WEBHOOK_RECEIVED"
	LogActionVerify       = "VERIFY"
	LogActionReconcile    = "RECONCILE"
	LogActionStateChange  = "STATE_CHANGE"
	LogActionFeeWithdrawn = "FEE_WITHDRAWAL"
)

// PaymentLog is an append-only audit row for every gateway interaction and money-state change.
type PaymentLog struct {
	LogID         string
	TransactionID string
	Action        string
	Status        string
	RequestData   json.RawMessage
	ResponseData  json.RawMessage
	ErrorMessage  string
	CreatedAt     time.Time
}

// GatewayAction builds actions such as FLUTTERWAVE_INITIATE or MTN_TRANSFER.
func GatewayAction(provider, operation string) string {
	return strings.ToUpper(provider) + "_" + operation
}
