package domain

import "time"

type PlatformSummary struct {
	TotalPlatformFees    int64
	Withdrawn            int64
	AvailableForWithdraw int64
	Currency             string
	CalculatedAt         time.Time
}

type DashboardStats struct {
	TotalTransactions     int64
	TotalRevenue          int64
	TotalCommission       int64
	CompletedTransactions int64
	PaidOutTransactions   int64
	Currency              string
}

// AdminAction is either a fee withdrawal or an admin emergency payout.
type AdminAction struct {
	Type          string
	TransactionID string
	JobID         string
	Amount        int64
	Reference     string
	Status        TransactionStatus
	OccurredAt    time.Time
}

const (
	AdminActionWithdrawal       = "admin_withdrawal"
	AdminActionEmergencyConfirm = "emergency_confirm"
)

type EscrowJob struct {
	Job         Job
	Transaction Transaction
}
