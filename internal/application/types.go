package application

import (
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

type Config struct {
	ServiceName             string
	Currency                string
	CommissionRateBps       int64
	ChargeCap               int64
	IdempotencyTTL          time.Duration
	EventDedupTTL           time.Duration
	LockTTL                 time.Duration
	ReconcileAge            time.Duration
	ReconcileBatchSize      int
	MaxDisbursementAttempts int
	VerifyWebhooks          bool
	AsyncWebhooks           bool
	PlatformName            string
}

type Actor struct {
	SubjectID      string
	Role           string
	Name           string
	RequestID      string
	IdempotencyKey string
}

type PostJobInput struct {
	Title       string
	Description string
	Location    string
	Budget      int64
}

type ListJobsInput struct {
	Status     string
	EmployerID string
	Limit      int
	Offset     int
}

type ApplyInput struct {
	JobID     string
	Name      string
	Phone     string
	CoverNote string
}

type InitiatePaymentInput struct {
	JobID         string
	Amount        int64
	PaymentMethod string
	EmployerPhone string
	Email         string
	FullName      string
}

type InitiatePaymentResult struct {
	Transaction      domain.Transaction
	GatewayReference string
	GatewayStatus    string
	RedirectURL      string
}

type VerifyPaymentResult struct {
	Transaction   domain.Transaction
	GatewayStatus string
	GatewayID     string
}

type PaymentStatus struct {
	Transaction domain.Transaction
	Logs        []domain.PaymentLog
}

type ReleaseResult struct {
	Transaction domain.Transaction
	JobStatus   domain.JobStatus
}

type WithdrawFeesInput struct {
	Amount int64
	Phone  string
	Name   string
}

type WebhookInput struct {
	Body      []byte
	Signature ports.WebhookSignature
	RequestID string
}

type WebhookResult struct {
	EventID   string
	Duplicate bool
	Queued    bool
}

type BlacklistInput struct {
	Name   string
	Phone  string
	Reason string
}

type ListTransactionsInput struct {
	Status string
	Limit  int
	Offset int
}

type FileReportInput struct {
	JobID   string
	Subject string
	Message string
}

type ListReportsInput struct {
	JobID  string
	Seen   *bool
	Limit  int
	Offset int
}

// ReconcileResult counts what one reconciliation pass did. Paid counts transfers that settled
// successfully and Reverted those that failed, whatever their kind.
type ReconcileResult struct {
	Checked     int `json:"checked"`
	Funded      int `json:"funded"`
	Failed      int `json:"failed"`
	Paid        int `json:"paid"`
	Reverted    int `json:"reverted"`
	Resubmitted int `json:"resubmitted"`
	Errors      int `json:"errors"`
}
