package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

func TestRefundOutageBlocksReleaseUntilReconciled(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 15000)

	f.gateway.transferErr = domain.ErrGatewayUnavailable
	res, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-1"), job.JobID)
	if err != nil {
		t.Fatalf("refund during outage should defer, got %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusRefundInitiated || res.JobStatus != domain.JobStatusPaidInEscrow {
		t.Fatalf("expected refund in flight with funds held, got %s/%s", res.Transaction.Status, res.JobStatus)
	}
	stored, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if stored.Status != domain.TransactionStatusRefundInitiated || stored.DisbursementReference != "refund_"+tx.TransactionID {
		t.Fatalf("expected refund recorded before the transfer, got %s/%s", stored.Status, stored.DisbursementReference)
	}

	f.gateway.transferErr = nil
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "release-1"), job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected release to be refused while a refund is in flight, got %v", err)
	}
	if _, err := f.service.AdminConfirmRelease(ctx, withKey(admin, "release-2"), job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected emergency release to be refused while a refund is in flight, got %v", err)
	}
	if _, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-2"), job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected second refund to be refused, got %v", err)
	}
	if n := len(f.gateway.transferCalls()); n != 1 {
		t.Fatalf("expected exactly one transfer before reconciliation, got %d", n)
	}

	time.Sleep(5 * time.Millisecond)
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Resubmitted != 1 || result.Paid != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	refunded, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if refunded.Status != domain.TransactionStatusRefunded {
		t.Fatalf("expected REFUNDED after reconciliation, got %s", refunded.Status)
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusCanceled {
		t.Fatalf("expected canceled job, got %s", reloaded.Status)
	}
	transfers := f.gateway.transferCalls()
	if len(transfers) != 2 {
		t.Fatalf("expected the refund to be resubmitted once, got %d transfers", len(transfers))
	}
	for _, req := range transfers {
		if req.Reference != "refund_"+tx.TransactionID || req.Amount != 15000 {
			t.Fatalf("expected only refund transfers, got %+v", req)
		}
	}
	if f.eventCount(domain.EventRefundInitiated) != 1 || f.eventCount(domain.EventEscrowRefunded) != 1 {
		t.Fatalf("expected refund_initiated and refunded events")
	}
	if n := f.eventCount(domain.EventDisbursementCompleted); n != 0 {
		t.Fatalf("expected no payout, got %d disbursement events", n)
	}
}

func TestPendingRefundFailedByWebhookReturnsFundsToEscrow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 15000)

	f.gateway.transferStatus = ports.GatewayStatusPending
	res, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-1"), job.JobID)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusRefundInitiated {
		t.Fatalf("expected pending refund to stay in flight, got %s", res.Transaction.Status)
	}
	if n := f.eventCount(domain.EventEscrowRefunded); n != 0 {
		t.Fatalf("expected no refunded event while pending, got %d", n)
	}

	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "transfer.completed:88:failed",
		Kind:      ports.GatewayEventTransfer,
		GatewayID: "88",
		Reference: "refund_" + tx.TransactionID,
		Status:    ports.GatewayStatusFailed,
	})); err != nil {
		t.Fatalf("transfer webhook failed: %v", err)
	}
	held, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if held.Status != domain.TransactionStatusCompleted || held.LastError == "" {
		t.Fatalf("expected failed refund back to COMPLETED with a reason, got %s (%q)", held.Status, held.LastError)
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusPaidInEscrow {
		t.Fatalf("expected job still in escrow, got %s", reloaded.Status)
	}
	if n := f.eventCount(domain.EventRefundFailed); n != 1 {
		t.Fatalf("expected one refund_failed event, got %d", n)
	}

	f.gateway.transferStatus = ports.GatewayStatusSuccessful
	release, err := f.service.ConfirmRelease(ctx, withKey(employer, "release-1"), job.JobID)
	if err != nil {
		t.Fatalf("release after failed refund failed: %v", err)
	}
	if release.Transaction.Status != domain.TransactionStatusPaidToCraftsman || release.Transaction.DisbursementAttempts != 1 {
		t.Fatalf("expected payout with a fresh attempt count, got %s/%d", release.Transaction.Status, release.Transaction.DisbursementAttempts)
	}
}

func TestRefundRejectedKeepsFundsHeld(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 15000)

	f.gateway.transferErr = fmt.Errorf("%w: wallet closed", domain.ErrGatewayRejected)
	if _, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-1"), job.JobID); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected gateway rejection, got %v", err)
	}
	held, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if held.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected funds held after rejected refund, got %s", held.Status)
	}
	if n := f.eventCount(domain.EventRefundFailed); n != 1 {
		t.Fatalf("expected one refund_failed event, got %d", n)
	}

	f.gateway.transferErr = nil
	res, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-1"), job.JobID)
	if err != nil {
		t.Fatalf("refund retry failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusRefunded || res.JobStatus != domain.JobStatusCanceled {
		t.Fatalf("expected refunded/canceled on retry, got %s/%s", res.Transaction.Status, res.JobStatus)
	}
}

func TestWithdrawalOutageIsRecordedAndReconciled(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, _ := f.fundedJob(t, 40000)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	f.gateway.transferErr = domain.ErrGatewayUnavailable
	withdrawal, err := f.service.WithdrawFees(ctx, withKey(admin, "w1"), application.WithdrawFeesInput{Amount: 3000, Phone: "0772999888"})
	if err != nil {
		t.Fatalf("withdrawal during outage should defer, got %v", err)
	}
	if withdrawal.Status != domain.TransactionStatusDisbursementInitiated || withdrawal.DisbursementReference != "admin_withdraw_"+withdrawal.TransactionID {
		t.Fatalf("expected recorded in-flight withdrawal, got %+v", withdrawal)
	}
	summary, _ := f.service.PlatformSummary(ctx, admin)
	if summary.Withdrawn != 3000 || summary.AvailableForWithdraw != 1000 {
		t.Fatalf("expected in-flight withdrawal to count as withdrawn, got %+v", summary)
	}
	if _, err := f.service.WithdrawFees(ctx, withKey(admin, "w2"), application.WithdrawFeesInput{Amount: 2000, Phone: "0772999888"}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds while withdrawal in flight, got %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	f.gateway.transferErr = nil
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Resubmitted != 1 || result.Paid != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	done, _ := f.repos.Transactions.GetByID(ctx, withdrawal.TransactionID)
	if done.Status != domain.TransactionStatusCompleted || done.PaidAt == nil {
		t.Fatalf("expected completed withdrawal, got %+v", done)
	}
	transfers := f.gateway.transferCalls()
	last := transfers[len(transfers)-1]
	if last.Reference != withdrawal.DisbursementReference || last.Amount != 3000 || last.BeneficiaryName != "CraftSmart" {
		t.Fatalf("unexpected withdrawal resubmission: %+v", last)
	}
	if n := f.eventCount(domain.EventFeesWithdrawn); n != 1 {
		t.Fatalf("expected one fees_withdrawn event, got %d", n)
	}
}

func TestPendingWithdrawalFailedByWebhookRestoresBalance(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, _ := f.fundedJob(t, 40000)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	f.gateway.transferStatus = ports.GatewayStatusPending
	withdrawal, err := f.service.WithdrawFees(ctx, withKey(admin, "w1"), application.WithdrawFeesInput{Amount: 4000, Phone: "0772999888"})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if withdrawal.Status != domain.TransactionStatusDisbursementInitiated || withdrawal.TransferID == "" {
		t.Fatalf("expected pending withdrawal with a transfer id, got %+v", withdrawal)
	}

	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "transfer.completed:91:failed",
		Kind:      ports.GatewayEventTransfer,
		GatewayID: "91",
		Reference: withdrawal.DisbursementReference,
		Status:    ports.GatewayStatusFailed,
	})); err != nil {
		t.Fatalf("transfer webhook failed: %v", err)
	}
	failed, _ := f.repos.Transactions.GetByID(ctx, withdrawal.TransactionID)
	if failed.Status != domain.TransactionStatusFailed {
		t.Fatalf("expected FAILED withdrawal, got %s", failed.Status)
	}
	summary, _ := f.service.PlatformSummary(ctx, admin)
	if summary.Withdrawn != 0 || summary.AvailableForWithdraw != 4000 {
		t.Fatalf("expected failed withdrawal to release the fees, got %+v", summary)
	}
	if n := f.eventCount(domain.EventFeesWithdrawalFailed); n != 1 {
		t.Fatalf("expected one fees_withdrawal_failed event, got %d", n)
	}
	if n := f.eventCount(domain.EventFeesWithdrawn); n != 0 {
		t.Fatalf("expected no fees_withdrawn event, got %d", n)
	}
}

func TestWithdrawalRejectedIsRecordedAsFailed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, _ := f.fundedJob(t, 40000)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	f.gateway.transferErr = fmt.Errorf("%w: unregistered wallet", domain.ErrGatewayRejected)
	if _, err := f.service.WithdrawFees(ctx, withKey(admin, "w1"), application.WithdrawFeesInput{Amount: 3000, Phone: "0772999888"}); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected gateway rejection, got %v", err)
	}
	rows, err := f.service.ListTransactions(ctx, admin, application.ListTransactionsInput{Status: "failed"})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != domain.TransactionTypeAdminWithdrawal || rows[0].LastError == "" {
		t.Fatalf("expected one failed withdrawal row, got %+v", rows)
	}
	summary, _ := f.service.PlatformSummary(ctx, admin)
	if summary.AvailableForWithdraw != 4000 {
		t.Fatalf("expected balance restored after rejection, got %+v", summary)
	}

	f.gateway.transferErr = nil
	retried, err := f.service.WithdrawFees(ctx, withKey(admin, "w1"), application.WithdrawFeesInput{Amount: 3000, Phone: "0772999888"})
	if err != nil {
		t.Fatalf("withdrawal retry failed: %v", err)
	}
	if retried.Status != domain.TransactionStatusCompleted || retried.TransactionID == rows[0].TransactionID {
		t.Fatalf("expected a new completed withdrawal, got %+v", retried)
	}
}

func TestDisbursementAttemptsCountSubmissions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	f.gateway.transferErr = domain.ErrGatewayUnavailable
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release during outage should defer, got %v", err)
	}
	stuck, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if stuck.DisbursementAttempts != 1 {
		t.Fatalf("expected one attempt after first submission, got %d", stuck.DisbursementAttempts)
	}

	time.Sleep(5 * time.Millisecond)
	f.gateway.transferErr = fmt.Errorf("%w: invalid account", domain.ErrGatewayRejected)
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Resubmitted != 1 || result.Reverted != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	reverted, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if reverted.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected reverted payout, got %s", reverted.Status)
	}
	if calls := len(f.gateway.transferCalls()); reverted.DisbursementAttempts != calls || calls != 2 {
		t.Fatalf("expected attempts to equal transfer calls (2), got attempts=%d calls=%d", reverted.DisbursementAttempts, calls)
	}
}

func TestReconcileGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *application.Config) { cfg.MaxDisbursementAttempts = 1 })
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	f.gateway.transferErr = domain.ErrGatewayUnavailable
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release during outage should defer, got %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Resubmitted != 0 || result.Reverted != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	reverted, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if reverted.Status != domain.TransactionStatusCompleted || reverted.LastError != "transfer attempts exhausted" {
		t.Fatalf("expected exhausted payout back in escrow, got %s (%q)", reverted.Status, reverted.LastError)
	}
	if reverted.DisbursementAttempts != 1 || len(f.gateway.transferCalls()) != 1 {
		t.Fatalf("expected no further submissions, got attempts=%d calls=%d", reverted.DisbursementAttempts, len(f.gateway.transferCalls()))
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusPaidInEscrow {
		t.Fatalf("expected job back in escrow, got %s", reloaded.Status)
	}
}
