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

func TestEscrowLifecycleFromPostingToPayout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	job, tx := f.fundedJob(t, 50000)
	if job.Status != domain.JobStatusPaidInEscrow {
		t.Fatalf("expected paid-in-escrow job, got %s", job.Status)
	}
	if tx.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED transaction, got %s", tx.Status)
	}
	if tx.TotalAmount != 40000 || tx.CommissionAmount != 4000 || tx.DisbursementAmount != 36000 {
		t.Fatalf("unexpected amounts: total=%d commission=%d payout=%d", tx.TotalAmount, tx.CommissionAmount, tx.DisbursementAmount)
	}
	if tx.EmployerPhone != "256701000111" {
		t.Fatalf("expected normalized employer phone, got %s", tx.EmployerPhone)
	}
	if tx.WebhookReceivedAt == nil || tx.ExternalTransactionID != "flw-1" {
		t.Fatalf("expected webhook metadata on funded transaction")
	}

	res, err := f.service.ConfirmRelease(ctx, withKey(employer, "release-1"), job.JobID)
	if err != nil {
		t.Fatalf("confirm release failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusPaidToCraftsman {
		t.Fatalf("expected PAID_TO_CRAFTSMAN, got %s", res.Transaction.Status)
	}
	if res.JobStatus != domain.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s", res.JobStatus)
	}
	if res.Transaction.PaidAt == nil || res.Transaction.ConfirmedBy != domain.ConfirmedByEmployer {
		t.Fatalf("expected paid_at and employer confirmation")
	}

	transfers := f.gateway.transferCalls()
	if len(transfers) != 1 {
		t.Fatalf("expected one transfer, got %d", len(transfers))
	}
	if transfers[0].Reference != "payout_"+tx.TransactionID || transfers[0].Amount != 36000 {
		t.Fatalf("unexpected transfer request: %+v", transfers[0])
	}
	if transfers[0].Phone != "256772123456" || transfers[0].PaymentMethod != domain.PaymentMethodMTN {
		t.Fatalf("expected payout to craftsman MTN wallet, got %+v", transfers[0])
	}
	if transfers[0].Narration != "CraftSmart payout UGX 36,000" {
		t.Fatalf("unexpected narration %q", transfers[0].Narration)
	}

	summary, err := f.service.PlatformSummary(ctx, admin)
	if err != nil {
		t.Fatalf("platform summary failed: %v", err)
	}
	if summary.TotalPlatformFees != 4000 || summary.AvailableForWithdraw != 4000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	events := map[string]int{}
	for _, rec := range f.repos.Outbox.Records() {
		events[rec.EventType]++
	}
	for _, eventType := range []string{
		domain.EventJobPosted,
		domain.EventApplicationAccepted,
		domain.EventPaymentInitiated,
		domain.EventEscrowFunded,
		domain.EventDisbursementCompleted,
	} {
		if events[eventType] != 1 {
			t.Fatalf("expected one %s event, got %d", eventType, events[eventType])
		}
	}
}

func TestInitiatePaymentRequiresIdempotencyKeyAndReplays(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 30000)
	input := application.InitiatePaymentInput{JobID: job.JobID, PaymentMethod: "AIRTEL", EmployerPhone: "0701000111"}

	if _, err := f.service.InitiatePayment(ctx, employer, input); !errors.Is(err, domain.ErrIdempotencyRequired) {
		t.Fatalf("expected idempotency required, got %v", err)
	}

	first, err := f.service.InitiatePayment(ctx, withKey(employer, "idem-1"), input)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	second, err := f.service.InitiatePayment(ctx, withKey(employer, "idem-1"), input)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if first.Transaction.TransactionID != second.Transaction.TransactionID {
		t.Fatalf("expected replayed transaction %s, got %s", first.Transaction.TransactionID, second.Transaction.TransactionID)
	}
	if len(f.gateway.charges) != 1 {
		t.Fatalf("expected a single gateway charge, got %d", len(f.gateway.charges))
	}

	input.Amount = 1000
	if _, err := f.service.InitiatePayment(ctx, withKey(employer, "idem-1"), input); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestInitiatePaymentRejectedThenRetried(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 20000)
	input := application.InitiatePaymentInput{JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111"}

	f.gateway.chargeErr = fmt.Errorf("%w: insufficient balance", domain.ErrGatewayRejected)
	if _, err := f.service.InitiatePayment(ctx, withKey(employer, "try-1"), input); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected gateway rejection, got %v", err)
	}
	failed, err := f.repos.Transactions.GetEscrowByJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if failed.Status != domain.TransactionStatusFailed {
		t.Fatalf("expected FAILED after rejection, got %s", failed.Status)
	}

	f.gateway.chargeErr = nil
	retry, err := f.service.InitiatePayment(ctx, withKey(employer, "try-2"), input)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.Transaction.TransactionID != failed.TransactionID {
		t.Fatalf("expected retry to reuse transaction %s", failed.TransactionID)
	}
	if retry.Transaction.Status != domain.TransactionStatusPending {
		t.Fatalf("expected PENDING retry, got %s", retry.Transaction.Status)
	}
	if retry.Transaction.PaymentReference == failed.PaymentReference {
		t.Fatalf("expected a fresh payment reference on retry")
	}
}

func TestInitiatePaymentOutageLeavesPending(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 20000)

	f.gateway.chargeErr = domain.ErrGatewayUnavailable
	_, err := f.service.InitiatePayment(ctx, withKey(employer, "k"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	tx, err := f.repos.Transactions.GetEscrowByJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if tx.Status != domain.TransactionStatusPending {
		t.Fatalf("expected PENDING after outage, got %s", tx.Status)
	}
}

func TestInitiatePaymentRejectsFundedJob(t *testing.T) {
	t.Parallel()

	f := newFixture()
	job, _ := f.fundedJob(t, 10000)
	_, err := f.service.InitiatePayment(context.Background(), withKey(employer, "again"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for funded job, got %v", err)
	}
}

func TestWebhookDuplicateAndSignature(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	in := webhook(t, ports.GatewayEvent{
		EventID:   "charge.completed:" + tx.TransactionID + ":successful",
		Kind:      ports.GatewayEventCharge,
		Reference: tx.PaymentReference,
		Status:    ports.GatewayStatusSuccessful,
		Amount:    tx.TotalAmount,
		Currency:  "UGX",
	})
	res, err := f.service.ReceiveWebhook(ctx, in)
	if err != nil {
		t.Fatalf("duplicate webhook failed: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate webhook to be detected")
	}

	in.Signature = ports.WebhookSignature{VerifHash: "wrong"}
	if _, err := f.service.ReceiveWebhook(ctx, in); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	reloaded, err := f.service.GetJob(ctx, employer, job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if reloaded.Status != domain.JobStatusPaidInEscrow {
		t.Fatalf("duplicate webhook changed job status to %s", reloaded.Status)
	}
}

func TestWebhookAmountMismatchFailsCharge(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 20000)
	res, err := f.service.InitiatePayment(ctx, withKey(employer, "k"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "charge.completed:short:successful",
		Kind:      ports.GatewayEventCharge,
		Reference: res.Transaction.TransactionID,
		Status:    ports.GatewayStatusSuccessful,
		Amount:    500,
		Currency:  "UGX",
	})); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	tx, _ := f.repos.Transactions.GetByID(ctx, res.Transaction.TransactionID)
	if tx.Status != domain.TransactionStatusFailed || tx.LastError == "" {
		t.Fatalf("expected underpaid charge to be FAILED with a reason, got %s (%q)", tx.Status, tx.LastError)
	}
	if n := f.eventCount(domain.EventPaymentFailed); n != 1 {
		t.Fatalf("expected one payment_failed event, got %d", n)
	}
	if n := f.eventCount(domain.EventEscrowFunded); n != 0 {
		t.Fatalf("expected no escrow_funded event, got %d", n)
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusInProgress {
		t.Fatalf("expected job to stay in progress, got %s", reloaded.Status)
	}

	time.Sleep(5 * time.Millisecond)
	f.gateway.verify = ports.ChargeStatus{Status: ports.GatewayStatusSuccessful, Amount: 20000, Currency: "UGX"}
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Checked != 0 || result.Funded != 0 {
		t.Fatalf("expected failed charge to be left alone by reconciliation, got %+v", result)
	}
}

func TestWebhookVerifiesWithGatewayWhenConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *application.Config) { cfg.VerifyWebhooks = true })
	ctx := context.Background()
	job := f.assignedJob(t, 20000)
	res, err := f.service.InitiatePayment(ctx, withKey(employer, "k"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	f.gateway.verify = ports.ChargeStatus{Status: ports.GatewayStatusFailed, Currency: "UGX"}
	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "charge.completed:spoof:successful",
		Kind:      ports.GatewayEventCharge,
		Reference: res.Transaction.TransactionID,
		Status:    ports.GatewayStatusSuccessful,
		Amount:    20000,
		Currency:  "UGX",
	})); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	tx, _ := f.repos.Transactions.GetByID(ctx, res.Transaction.TransactionID)
	if tx.Status != domain.TransactionStatusFailed {
		t.Fatalf("expected gateway verification to win, got %s", tx.Status)
	}
}

func TestAsyncWebhookGoesThroughOutbox(t *testing.T) {
	t.Parallel()

	f := newFixture(func(cfg *application.Config) { cfg.AsyncWebhooks = true })
	ctx := context.Background()
	job := f.assignedJob(t, 20000)
	res, err := f.service.InitiatePayment(ctx, withKey(employer, "k"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	out, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "charge.completed:async:successful",
		Kind:      ports.GatewayEventCharge,
		Reference: res.Transaction.TransactionID,
		Status:    ports.GatewayStatusSuccessful,
		Amount:    20000,
		Currency:  "UGX",
	}))
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if !out.Queued {
		t.Fatalf("expected webhook to be queued")
	}

	var queued *ports.OutboxRecord
	for _, rec := range f.repos.Outbox.Records() {
		if rec.EventType == domain.EventGatewayWebhookReceived {
			queued = &rec
		}
	}
	if queued == nil {
		t.Fatalf("expected gateway.webhook_received in outbox")
	}
	envelope := decodeEnvelope(t, queued.Payload)
	if err := f.service.HandleCanonicalEvent(ctx, envelope); err != nil {
		t.Fatalf("handle event failed: %v", err)
	}
	if err := f.service.HandleCanonicalEvent(ctx, envelope); err != nil {
		t.Fatalf("redelivered event failed: %v", err)
	}
	tx, _ := f.repos.Transactions.GetByID(ctx, res.Transaction.TransactionID)
	if tx.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED after consumer, got %s", tx.Status)
	}
}

func TestConfirmReleaseRejectedTransferReverts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	f.gateway.transferErr = fmt.Errorf("%w: invalid account", domain.ErrGatewayRejected)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r1"), job.JobID); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected gateway rejection, got %v", err)
	}
	reverted, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if reverted.Status != domain.TransactionStatusCompleted || reverted.DisbursementAttempts != 1 || reverted.LastError == "" {
		t.Fatalf("expected reverted transaction with one attempt, got %+v", reverted)
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusPaidInEscrow {
		t.Fatalf("expected job back in escrow, got %s", reloaded.Status)
	}

	f.gateway.transferErr = nil
	res, err := f.service.ConfirmRelease(ctx, withKey(employer, "r1"), job.JobID)
	if err != nil {
		t.Fatalf("retry release failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusPaidToCraftsman {
		t.Fatalf("expected payout on retry, got %s", res.Transaction.Status)
	}
}

func TestConfirmReleasePendingTransferSettledByWebhook(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	f.gateway.transferStatus = ports.GatewayStatusPending
	res, err := f.service.AdminConfirmRelease(ctx, withKey(admin, "r1"), job.JobID)
	if err != nil {
		t.Fatalf("admin release failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusDisbursementInitiated || res.JobStatus != domain.JobStatusDisbursed {
		t.Fatalf("expected initiated payout, got %s/%s", res.Transaction.Status, res.JobStatus)
	}
	if res.Transaction.DisbursementReference != "admin_emergency_"+tx.TransactionID {
		t.Fatalf("unexpected emergency reference %s", res.Transaction.DisbursementReference)
	}

	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "transfer.completed:77:SUCCESSFUL",
		Kind:      ports.GatewayEventTransfer,
		GatewayID: "77",
		Reference: res.Transaction.DisbursementReference,
		Status:    ports.GatewayStatusSuccessful,
	})); err != nil {
		t.Fatalf("transfer webhook failed: %v", err)
	}
	paid, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if paid.Status != domain.TransactionStatusPaidToCraftsman || paid.TransferID != "77" {
		t.Fatalf("expected paid transaction with transfer id, got %+v", paid)
	}

	actions, err := f.service.AdminActions(ctx, admin, 10)
	if err != nil {
		t.Fatalf("admin actions failed: %v", err)
	}
	if len(actions) != 1 || actions[0].Type != domain.AdminActionEmergencyConfirm {
		t.Fatalf("expected one emergency confirm action, got %+v", actions)
	}
}

func TestConfirmReleaseGuards(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 10000)

	if _, err := f.service.ConfirmRelease(ctx, employer, job.JobID); !errors.Is(err, domain.ErrIdempotencyRequired) {
		t.Fatalf("expected idempotency required, got %v", err)
	}
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "x"), job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition before funding, got %v", err)
	}
	if _, err := f.service.ConfirmRelease(ctx, withKey(craftsman, "x"), job.JobID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for craftsman, got %v", err)
	}

	funded, _ := f.fundedJob(t, 10000)
	lock, err := f.locks.Acquire(ctx, "escrow:job:"+funded.JobID, time.Minute)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release(ctx)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "y"), funded.JobID); !errors.Is(err, domain.ErrOperationInProgress) {
		t.Fatalf("expected operation in progress while locked, got %v", err)
	}
}

func TestRefundEscrowCancelsJob(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 15000)

	if _, err := f.service.CancelJob(ctx, employer, job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected funded job cancel to be refused, got %v", err)
	}

	res, err := f.service.RefundEscrow(ctx, withKey(admin, "refund-1"), job.JobID)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if res.Transaction.Status != domain.TransactionStatusRefunded || res.JobStatus != domain.JobStatusCanceled {
		t.Fatalf("expected refunded/canceled, got %s/%s", res.Transaction.Status, res.JobStatus)
	}
	transfers := f.gateway.transferCalls()
	if len(transfers) != 1 || transfers[0].Reference != "refund_"+tx.TransactionID || transfers[0].Amount != 15000 {
		t.Fatalf("unexpected refund transfer: %+v", transfers)
	}
	if transfers[0].PaymentMethod != domain.PaymentMethodAirtel {
		t.Fatalf("expected refund to employer airtel wallet, got %s", transfers[0].PaymentMethod)
	}
}

func TestWithdrawFeesRespectsAvailableBalance(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, _ := f.fundedJob(t, 40000)
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), job.JobID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	withdrawal, err := f.service.WithdrawFees(ctx, withKey(admin, "w1"), application.WithdrawFeesInput{Amount: 3000, Phone: "0772999888"})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if withdrawal.Type != domain.TransactionTypeAdminWithdrawal || withdrawal.Status != domain.TransactionStatusCompleted {
		t.Fatalf("unexpected withdrawal row: %+v", withdrawal)
	}

	if _, err := f.service.WithdrawFees(ctx, withKey(admin, "w2"), application.WithdrawFeesInput{Amount: 2000, Phone: "0772999888"}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	summary, _ := f.service.PlatformSummary(ctx, admin)
	if summary.Withdrawn != 3000 || summary.AvailableForWithdraw != 1000 {
		t.Fatalf("unexpected summary after withdrawal: %+v", summary)
	}

	stats, err := f.service.DashboardStats(ctx, admin)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalTransactions != 1 || stats.PaidOutTransactions != 1 || stats.TotalRevenue != 40000 || stats.TotalCommission != 4000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReconcileSettlesStuckTransactions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	pendingJob := f.assignedJob(t, 20000)
	pending, err := f.service.InitiatePayment(ctx, withKey(employer, "p"), application.InitiatePaymentInput{
		JobID: pendingJob.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	fundedJob, fundedTx := f.fundedJob(t, 10000)
	f.gateway.transferErr = domain.ErrGatewayUnavailable
	if _, err := f.service.ConfirmRelease(ctx, withKey(employer, "r"), fundedJob.JobID); err != nil {
		t.Fatalf("release during outage should defer, got %v", err)
	}
	stuck, _ := f.repos.Transactions.GetByID(ctx, fundedTx.TransactionID)
	if stuck.Status != domain.TransactionStatusDisbursementInitiated {
		t.Fatalf("expected payout left initiated, got %s", stuck.Status)
	}

	time.Sleep(5 * time.Millisecond)
	f.gateway.transferErr = nil
	f.gateway.verify = ports.ChargeStatus{Status: ports.GatewayStatusSuccessful, GatewayID: "g-1", Amount: 20000, Currency: "UGX"}
	result, err := f.service.ReconcileOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Funded != 1 || result.Paid != 1 || result.Resubmitted != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}

	funded, _ := f.repos.Transactions.GetByID(ctx, pending.Transaction.TransactionID)
	if funded.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected pending charge funded, got %s", funded.Status)
	}
	paid, _ := f.repos.Transactions.GetByID(ctx, fundedTx.TransactionID)
	if paid.Status != domain.TransactionStatusPaidToCraftsman {
		t.Fatalf("expected payout settled, got %s", paid.Status)
	}
	transfers := f.gateway.transferCalls()
	if transfers[len(transfers)-1].Reference != "payout_"+fundedTx.TransactionID {
		t.Fatalf("expected resubmission with the original reference")
	}
}

func TestApplicationsAndReports(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, err := f.service.PostJob(ctx, employer, application.PostJobInput{Title: "Paint", Description: "Two rooms", Location: "Entebbe", Budget: 8000})
	if err != nil {
		t.Fatalf("post job failed: %v", err)
	}
	first, err := f.service.Apply(ctx, craftsman, application.ApplyInput{JobID: job.JobID, Phone: "0772123456"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if first.CraftsmanName != "Moses" {
		t.Fatalf("expected name from token claims, got %q", first.CraftsmanName)
	}
	if _, err := f.service.Apply(ctx, craftsman, application.ApplyInput{JobID: job.JobID, Phone: "0772123456"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate application conflict, got %v", err)
	}
	other := application.Actor{SubjectID: "cra-2", Role: domain.RoleCraftsman, Name: "Peter"}
	second, err := f.service.Apply(ctx, other, application.ApplyInput{JobID: job.JobID, Phone: "0701555666"})
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	if _, _, err := f.service.AcceptApplication(ctx, employer, first.ApplicationID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	rejected, _ := f.repos.Applications.GetByID(ctx, second.ApplicationID)
	if rejected.Status != domain.ApplicationStatusRejected {
		t.Fatalf("expected competing application rejected, got %s", rejected.Status)
	}

	if _, err := f.service.FileReport(ctx, other, application.FileReportInput{JobID: job.JobID, Subject: "x", Message: "y"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected non-party report to be forbidden, got %v", err)
	}
	report, err := f.service.FileReport(ctx, craftsman, application.FileReportInput{JobID: job.JobID, Subject: "No access", Message: "Gate locked"})
	if err != nil {
		t.Fatalf("file report failed: %v", err)
	}
	if report.FromRole != domain.RoleCraftsman {
		t.Fatalf("expected craftsman report, got %s", report.FromRole)
	}
	unseen := false
	reports, err := f.service.ListReports(ctx, admin, application.ListReportsInput{Seen: &unseen})
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected one unseen report, got %d (%v)", len(reports), err)
	}
	seen, err := f.service.MarkReportSeen(ctx, admin, report.ReportID)
	if err != nil || !seen.Seen {
		t.Fatalf("mark seen failed: %v", err)
	}
}
