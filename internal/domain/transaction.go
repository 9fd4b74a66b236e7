package domain

import (
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionTypeEscrow          TransactionType = "escrow"
	TransactionTypeAdminWithdrawal TransactionType = "admin_withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending               TransactionStatus = "PENDING"
	TransactionStatusCompleted             TransactionStatus = "COMPLETED"
	TransactionStatusDisbursementInitiated TransactionStatus = "DISBURSEMENT_INITIATED"
	TransactionStatusPaidToCraftsman       TransactionStatus = "PAID_TO_CRAFTSMAN"
	TransactionStatusFailed                TransactionStatus = "FAILED"
	TransactionStatusRefundInitiated       TransactionStatus = "REFUND_INITIATED"
	TransactionStatusRefunded              TransactionStatus = "REFUNDED"
)

// escrowTransitions covers escrow transactions. COMPLETED means funds are held by the platform.
// PENDING -> PENDING is a charge re-attempt under a new gateway reference.
var escrowTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:               {TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusFailed:                {TransactionStatusPending},
	TransactionStatusCompleted:             {TransactionStatusDisbursementInitiated, TransactionStatusRefundInitiated},
	TransactionStatusDisbursementInitiated: {TransactionStatusPaidToCraftsman, TransactionStatusCompleted},
	TransactionStatusRefundInitiated:       {TransactionStatusRefunded, TransactionStatusCompleted},
}

// withdrawalTransitions covers fee withdrawals, which are recorded before the transfer is sent.
var withdrawalTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusDisbursementInitiated: {TransactionStatusCompleted, TransactionStatusFailed},
}

func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	switch s := TransactionStatus(raw); s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusDisbursementInitiated,
		TransactionStatusPaidToCraftsman, TransactionStatusFailed, TransactionStatusRefundInitiated, TransactionStatusRefunded:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction status %q", ErrInvalidInput, raw)
	}
}

const (
	ConfirmedByEmployer = "employer"
	ConfirmedByAdmin    = "admin"
)

type Transaction struct {
	TransactionID         string
	Type                  TransactionType
	JobID                 string
	EmployerID            string
	CraftsmanID           string
	EmployerPhone         string
	CraftsmanPhone        string
	TotalAmount           int64
	CommissionAmount      int64
	DisbursementAmount    int64
	Currency              string
	PaymentMethod         string
	Provider              string
	PaymentReference      string
	ExternalTransactionID string
	DisbursementReference string
	TransferID            string
	ConfirmedBy           string
	DisbursementAttempts  int
	LastError             string
	Status                TransactionStatus
	Version               int64
	WebhookReceivedAt     *time.Time
	PaidAt                *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CanTransitionTransaction checks an edge for the given type. An empty type means escrow.
func CanTransitionTransaction(txType TransactionType, from, to TransactionStatus) bool {
	table := escrowTransitions
	if txType == TransactionTypeAdminWithdrawal {
		table = withdrawalTransitions
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the transaction to next when the edge exists.
func (t *Transaction) TransitionTo(next TransactionStatus, at time.Time) error {
	if !CanTransitionTransaction(t.Type, t.Status, next) {
		return fmt.Errorf("%w: %s transaction %s -> %s", ErrInvalidTransition, t.kind(), t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = at
	return nil
}

func (t Transaction) kind() TransactionType {
	if t.Type == "" {
		return TransactionTypeEscrow
	}
	return t.Type
}

// HoldsFunds reports whether the platform currently has the employer's money for this transaction.
func (t Transaction) HoldsFunds() bool {
	if t.kind() != TransactionTypeEscrow {
		return false
	}
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusDisbursementInitiated, TransactionStatusRefundInitiated:
		return true
	default:
		return false
	}
}

// TransferInFlight reports whether an outgoing transfer was recorded but has not settled yet.
func (t Transaction) TransferInFlight() bool {
	return t.Status == TransactionStatusDisbursementInitiated || t.Status == TransactionStatusRefundInitiated
}

// SplitCommission returns round(total*rate) and the remainder, with rate given in basis points.
func SplitCommission(total, rateBasisPoints int64) (commission, payout int64) {
	if total <= 0 || rateBasisPoints <= 0 {
		return 0, total
	}
	commission = (total*rateBasisPoints + 5000) / 10000
	return commission, total - commission
}
