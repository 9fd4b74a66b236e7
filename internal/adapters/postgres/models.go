package postgres

import (
	"time"

	"github.com/google/uuid"
)

type jobModel struct {
	JobID          string    `gorm:"column:job_id;primaryKey"`
	Title          string    `gorm:"column:title"`
	Description    string    `gorm:"column:description"`
	Location       string    `gorm:"column:location"`
	Budget         int64     `gorm:"column:budget"`
	EmployerID     string    `gorm:"column:employer_id"`
	CraftsmanID    string    `gorm:"column:craftsman_id"`
	CraftsmanName  string    `gorm:"column:craftsman_name"`
	CraftsmanPhone string    `gorm:"column:craftsman_phone"`
	Status         string    `gorm:"column:status"`
	Version        int64     `gorm:"column:version"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (jobModel) TableName() string { return "jobs" }

type applicationModel struct {
	ApplicationID  string    `gorm:"column:application_id;primaryKey"`
	JobID          string    `gorm:"column:job_id"`
	CraftsmanID    string    `gorm:"column:craftsman_id"`
	CraftsmanName  string    `gorm:"column:craftsman_name"`
	CraftsmanPhone string    `gorm:"column:craftsman_phone"`
	CoverNote      string    `gorm:"column:cover_note"`
	Status         string    `gorm:"column:status"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (applicationModel) TableName() string { return "job_applications" }

type transactionModel struct {
	TransactionID         string     `gorm:"column:transaction_id;primaryKey"`
	Type                  string     `gorm:"column:type"`
	JobID                 string     `gorm:"column:job_id"`
	EmployerID            string     `gorm:"column:employer_id"`
	CraftsmanID           string     `gorm:"column:craftsman_id"`
	EmployerPhone         string     `gorm:"column:employer_phone"`
	CraftsmanPhone        string     `gorm:"column:craftsman_phone"`
	TotalAmount           int64      `gorm:"column:total_amount"`
	CommissionAmount      int64      `gorm:"column:commission_amount"`
	DisbursementAmount    int64      `gorm:"column:disbursement_amount"`
	Currency              string     `gorm:"column:currency"`
	PaymentMethod         string     `gorm:"column:payment_method"`
	Provider              string     `gorm:"column:provider"`
	PaymentReference      string     `gorm:"column:payment_reference"`
	ExternalTransactionID string     `gorm:"column:external_transaction_id"`
	DisbursementReference string     `gorm:"column:disbursement_reference"`
	TransferID            string     `gorm:"column:transfer_id"`
	ConfirmedBy           string     `gorm:"column:confirmed_by"`
	DisbursementAttempts  int        `gorm:"column:disbursement_attempts"`
	LastError             string     `gorm:"column:last_error"`
	Status                string     `gorm:"column:status"`
	Version               int64      `gorm:"column:version"`
	WebhookReceivedAt     *time.Time `gorm:"column:webhook_received_at"`
	PaidAt                *time.Time `gorm:"column:paid_at"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (transactionModel) TableName() string { return "escrow_transactions" }

type paymentLogModel struct {
	LogID         string    `gorm:"column:log_id;primaryKey"`
	TransactionID string    `gorm:"column:transaction_id"`
	Action        string    `gorm:"column:action"`
	Status        string    `gorm:"column:status"`
	RequestData   *string   `gorm:"column:request_data;type:jsonb"`
	ResponseData  *string   `gorm:"column:response_data;type:jsonb"`
	ErrorMessage  string    `gorm:"column:error_message"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (paymentLogModel) TableName() string { return "payment_logs" }

type reportModel struct {
	ReportID    string    `gorm:"column:report_id;primaryKey"`
	JobID       string    `gorm:"column:job_id"`
	FromRole    string    `gorm:"column:from_role"`
	EmployerID  string    `gorm:"column:employer_id"`
	CraftsmanID string    `gorm:"column:craftsman_id"`
	Subject     string    `gorm:"column:subject"`
	Message     string    `gorm:"column:message"`
	Seen        bool      `gorm:"column:seen"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (reportModel) TableName() string { return "job_reports" }

// blacklistModel keeps the MSISDN in clear; lookups match on it and the list is published.
type blacklistModel struct {
	EntryID string    `gorm:"column:entry_id;primaryKey"`
	Name    string    `gorm:"column:name"`
	MSISDN  string    `gorm:"column:msisdn"`
	Reason  string    `gorm:"column:reason"`
	AddedBy string    `gorm:"column:added_by"`
	AddedAt time.Time `gorm:"column:added_at"`
}

func (blacklistModel) TableName() string { return "phone_blacklist" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "escrow_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "escrow_idempotency" }

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "escrow_event_dedup" }
