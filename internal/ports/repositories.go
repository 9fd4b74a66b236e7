package ports

import (
	"context"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/google/uuid"
)

type JobFilter struct {
	Status     domain.JobStatus
	EmployerID string
	Limit      int
	Offset     int
}

type JobRepository interface {
	Create(ctx context.Context, job domain.Job, events []OutboxEvent) error
	GetByID(ctx context.Context, jobID string) (domain.Job, error)
	List(ctx context.Context, filter JobFilter) ([]domain.Job, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, app domain.Application) error
	GetByID(ctx context.Context, applicationID string) (domain.Application, error)
	GetByJobAndCraftsman(ctx context.Context, jobID, craftsmanID string) (domain.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.Application, error)
	ListByCraftsman(ctx context.Context, craftsmanID string) ([]domain.Application, error)
	UpdateStatus(ctx context.Context, applicationID string, status domain.ApplicationStatus, at time.Time) error
}

type TransactionFilter struct {
	Type          domain.TransactionType
	Status        domain.TransactionStatus
	EmployerID    string
	ConfirmedBy   string
	UpdatedBefore *time.Time
	Limit         int
	Offset        int
}

type TransactionRepository interface {
	GetByID(ctx context.Context, transactionID string) (domain.Transaction, error)
	GetByPaymentReference(ctx context.Context, reference string) (domain.Transaction, error)
	GetByDisbursementReference(ctx context.Context, reference string) (domain.Transaction, error)
	// GetEscrowByJob returns the escrow transaction for a job; there is at most one.
	GetEscrowByJob(ctx context.Context, jobID string) (domain.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	// SumAmounts returns the summed total and commission amounts of matching rows.
	SumAmounts(ctx context.Context, filter TransactionFilter) (total int64, commission int64, err error)
}

type PaymentLogRepository interface {
	Append(ctx context.Context, entry domain.PaymentLog) error
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.PaymentLog, error)
}

type ReportFilter struct {
	JobID  string
	Seen   *bool
	Limit  int
	Offset int
}

type ReportRepository interface {
	Create(ctx context.Context, report domain.Report, events []OutboxEvent) error
	GetByID(ctx context.Context, reportID string) (domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	MarkSeen(ctx context.Context, reportID string) error
}

type BlacklistRepository interface {
	// Add fails with domain.ErrConflict when the MSISDN is already listed.
	Add(ctx context.Context, entry domain.BlacklistEntry) error
	GetByMSISDN(ctx context.Context, msisdn string) (domain.BlacklistEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.BlacklistEntry, error)
	Delete(ctx context.Context, entryID string) error
}

// ApplicationDecision accepts one application and rejects the remaining pending ones of the job.
type ApplicationDecision struct {
	JobID                 string
	AcceptedApplicationID string
	DecidedAt             time.Time
}

// Transition is one atomic unit of escrow state change.
// Job and Transaction carry the new state and the version that was read; the store
// updates them only when the stored version still matches and then increments Version in place.
// NewTransaction is inserted with Version 1.
type Transition struct {
	Job            *domain.Job
	NewTransaction *domain.Transaction
	Transaction    *domain.Transaction
	Decision       *ApplicationDecision
	Logs           []domain.PaymentLog
	Events         []OutboxEvent
}

// TransitionStore is the single write path for job and transaction status changes.
type TransitionStore interface {
	Commit(ctx context.Context, t Transition) error
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release drops a reservation whose operation failed so the caller may retry with the same key.
	Release(ctx context.Context, key string) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}
