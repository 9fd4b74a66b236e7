package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSplitCommission(t *testing.T) {
	cases := []struct {
		total, bps         int64
		commission, payout int64
	}{
		{total: 40000, bps: 1000, commission: 4000, payout: 36000},
		{total: 12345, bps: 1000, commission: 1235, payout: 11110},
		{total: 12344, bps: 1000, commission: 1234, payout: 11110},
		{total: 5, bps: 1000, commission: 1, payout: 4},
		{total: 4, bps: 1000, commission: 0, payout: 4},
		{total: 40000, bps: 0, commission: 0, payout: 40000},
	}
	for _, tc := range cases {
		commission, payout := SplitCommission(tc.total, tc.bps)
		if commission != tc.commission || payout != tc.payout {
			t.Fatalf("SplitCommission(%d, %d) = %d/%d, want %d/%d", tc.total, tc.bps, commission, payout, tc.commission, tc.payout)
		}
		if commission+payout != tc.total {
			t.Fatalf("split of %d does not add up: %d + %d", tc.total, commission, payout)
		}
	}
}

func TestJobTransitions(t *testing.T) {
	allowed := map[[2]JobStatus]bool{
		{JobStatusOpen, JobStatusInProgress}:         true,
		{JobStatusOpen, JobStatusCanceled}:           true,
		{JobStatusInProgress, JobStatusPaidInEscrow}: true,
		{JobStatusInProgress, JobStatusCanceled}:     true,
		{JobStatusPaidInEscrow, JobStatusDisbursed}:  true,
		{JobStatusPaidInEscrow, JobStatusCanceled}:   true,
		{JobStatusDisbursed, JobStatusCompleted}:     true,
		{JobStatusDisbursed, JobStatusPaidInEscrow}:  true,
	}
	all := []JobStatus{JobStatusOpen, JobStatusInProgress, JobStatusPaidInEscrow, JobStatusDisbursed, JobStatusCompleted, JobStatusCanceled}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, from := range all {
		for _, to := range all {
			job := Job{Status: from}
			err := job.TransitionTo(to, at)
			if allowed[[2]JobStatus{from, to}] {
				if err != nil {
					t.Fatalf("expected %s -> %s to be allowed, got %v", from, to, err)
				}
				if job.Status != to || !job.UpdatedAt.Equal(at) {
					t.Fatalf("transition %s -> %s did not apply: %+v", from, to, job)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected %s -> %s to be rejected, got %v", from, to, err)
			}
			if job.Status != from {
				t.Fatalf("rejected transition mutated status to %s", job.Status)
			}
		}
	}
}

func TestTransactionTransitions(t *testing.T) {
	cases := []struct {
		txType   TransactionType
		from, to TransactionStatus
		ok       bool
	}{
		{TransactionTypeEscrow, TransactionStatusPending, TransactionStatusCompleted, true},
		{TransactionTypeEscrow, TransactionStatusPending, TransactionStatusPending, true},
		{TransactionTypeEscrow, TransactionStatusPending, TransactionStatusFailed, true},
		{TransactionTypeEscrow, TransactionStatusFailed, TransactionStatusPending, true},
		{TransactionTypeEscrow, TransactionStatusCompleted, TransactionStatusDisbursementInitiated, true},
		{TransactionTypeEscrow, TransactionStatusCompleted, TransactionStatusRefundInitiated, true},
		{TransactionTypeEscrow, TransactionStatusDisbursementInitiated, TransactionStatusCompleted, true},
		{TransactionTypeEscrow, TransactionStatusDisbursementInitiated, TransactionStatusPaidToCraftsman, true},
		{TransactionTypeEscrow, TransactionStatusRefundInitiated, TransactionStatusRefunded, true},
		{TransactionTypeEscrow, TransactionStatusRefundInitiated, TransactionStatusCompleted, true},
		{"", TransactionStatusCompleted, TransactionStatusRefundInitiated, true},
		{TransactionTypeEscrow, TransactionStatusCompleted, TransactionStatusRefunded, false},
		{TransactionTypeEscrow, TransactionStatusRefundInitiated, TransactionStatusDisbursementInitiated, false},
		{TransactionTypeEscrow, TransactionStatusPending, TransactionStatusPaidToCraftsman, false},
		{TransactionTypeEscrow, TransactionStatusCompleted, TransactionStatusFailed, false},
		{TransactionTypeEscrow, TransactionStatusPaidToCraftsman, TransactionStatusCompleted, false},
		{TransactionTypeEscrow, TransactionStatusRefunded, TransactionStatusCompleted, false},
		{TransactionTypeAdminWithdrawal, TransactionStatusDisbursementInitiated, TransactionStatusCompleted, true},
		{TransactionTypeAdminWithdrawal, TransactionStatusDisbursementInitiated, TransactionStatusFailed, true},
		{TransactionTypeAdminWithdrawal, TransactionStatusDisbursementInitiated, TransactionStatusPaidToCraftsman, false},
		{TransactionTypeAdminWithdrawal, TransactionStatusFailed, TransactionStatusPending, false},
		{TransactionTypeAdminWithdrawal, TransactionStatusCompleted, TransactionStatusFailed, false},
	}
	for _, tc := range cases {
		tx := Transaction{Type: tc.txType, Status: tc.from}
		err := tx.TransitionTo(tc.to, time.Now())
		if tc.ok && err != nil {
			t.Fatalf("expected %s %s -> %s to be allowed, got %v", tc.txType, tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected %s %s -> %s to be rejected, got %v", tc.txType, tc.from, tc.to, err)
		}
	}
}

func TestTransferInFlight(t *testing.T) {
	for status, want := range map[TransactionStatus]bool{
		TransactionStatusDisbursementInitiated: true,
		TransactionStatusRefundInitiated:       true,
		TransactionStatusCompleted:             false,
		TransactionStatusRefunded:              false,
	} {
		if got := (Transaction{Status: status}).TransferInFlight(); got != want {
			t.Fatalf("TransferInFlight(%s) = %v, want %v", status, got, want)
		}
	}
	refunding := Transaction{Type: TransactionTypeEscrow, Status: TransactionStatusRefundInitiated}
	if !refunding.HoldsFunds() {
		t.Fatal("refund in flight should still count as held")
	}
}

func TestHoldsFunds(t *testing.T) {
	held := Transaction{Type: TransactionTypeEscrow, Status: TransactionStatusDisbursementInitiated}
	if !held.HoldsFunds() {
		t.Fatal("disbursement in flight should still count as held")
	}
	withdrawal := Transaction{Type: TransactionTypeAdminWithdrawal, Status: TransactionStatusCompleted}
	if withdrawal.HoldsFunds() {
		t.Fatal("fee withdrawals never hold escrow funds")
	}
}

func TestNormalizeMSISDN(t *testing.T) {
	valid := map[string]string{
		"0772 123456":   "256772123456",
		"+256701000111": "256701000111",
		"256-752-00011": "25675200011",
	}
	for raw, want := range valid {
		got, err := NormalizeMSISDN(raw)
		if err != nil || got != want {
			t.Fatalf("NormalizeMSISDN(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	for _, raw := range []string{"", "0772", "0772abc456", "+2567721234567890"} {
		if _, err := NormalizeMSISDN(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestPaymentMethodForMSISDN(t *testing.T) {
	if got := PaymentMethodForMSISDN("256772123456", PaymentMethodAirtel); got != PaymentMethodMTN {
		t.Fatalf("expected MTN prefix, got %s", got)
	}
	if got := PaymentMethodForMSISDN("256701000111", PaymentMethodMTN); got != PaymentMethodAirtel {
		t.Fatalf("expected Airtel prefix, got %s", got)
	}
	if got := PaymentMethodForMSISDN("256311000111", PaymentMethodMTN); got != PaymentMethodMTN {
		t.Fatalf("expected fallback, got %s", got)
	}
	if _, err := NormalizePaymentMethod("mpesa"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unsupported method error, got %v", err)
	}
	if got, _ := NormalizePaymentMethod(" airtel "); got != PaymentMethodAirtel {
		t.Fatalf("expected AIRTEL, got %s", got)
	}
}
