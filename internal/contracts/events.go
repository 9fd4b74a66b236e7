package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type JobPostedPayload struct {
	JobID      string `json:"job_id"`
	EmployerID string `json:"employer_id"`
	Budget     int64  `json:"budget"`
	PostedAt   string `json:"posted_at"`
}

type JobCanceledPayload struct {
	JobID      string `json:"job_id"`
	CanceledBy string `json:"canceled_by"`
	CanceledAt string `json:"canceled_at"`
}

type ApplicationAcceptedPayload struct {
	JobID         string `json:"job_id"`
	ApplicationID string `json:"application_id"`
	CraftsmanID   string `json:"craftsman_id"`
	AcceptedAt    string `json:"accepted_at"`
}

// EscrowTransactionPayload is shared by the escrow.* events; fields not relevant to an event stay empty.
type EscrowTransactionPayload struct {
	JobID                 string `json:"job_id"`
	TransactionID         string `json:"transaction_id"`
	Status                string `json:"status"`
	TotalAmount           int64  `json:"total_amount"`
	CommissionAmount      int64  `json:"commission_amount"`
	DisbursementAmount    int64  `json:"disbursement_amount"`
	Currency              string `json:"currency"`
	Provider              string `json:"provider,omitempty"`
	PaymentReference      string `json:"payment_reference,omitempty"`
	DisbursementReference string `json:"disbursement_reference,omitempty"`
	ConfirmedBy           string `json:"confirmed_by,omitempty"`
	Reason                string `json:"reason,omitempty"`
	OccurredAt            string `json:"occurred_at"`
}

type FeesWithdrawnPayload struct {
	TransactionID string `json:"transaction_id"`
	AdminID       string `json:"admin_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	WithdrawnAt   string `json:"withdrawn_at"`
	Reason        string `json:"reason,omitempty"`
}

type ReportFiledPayload struct {
	ReportID string `json:"report_id"`
	JobID    string `json:"job_id"`
	FromRole string `json:"from_role"`
	FiledAt  string `json:"filed_at"`
}
