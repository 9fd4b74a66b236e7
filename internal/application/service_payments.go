package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

// InitiatePayment charges the employer's mobile-money wallet for an in-progress job.
func (s *Service) InitiatePayment(ctx context.Context, actor Actor, input InitiatePaymentInput) (InitiatePaymentResult, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return InitiatePaymentResult{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return InitiatePaymentResult{}, err
	}
	method, err := domain.NormalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return InitiatePaymentResult{}, err
	}
	phone, err := domain.NormalizeMSISDN(input.EmployerPhone)
	if err != nil {
		return InitiatePaymentResult{}, err
	}
	if err := s.ensureNotBlacklisted(ctx, phone); err != nil {
		return InitiatePaymentResult{}, err
	}
	if input.Amount < 0 {
		return InitiatePaymentResult{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	requestHash := hashJSON(struct {
		Actor string
		Input InitiatePaymentInput
	}{actor.SubjectID, input})
	if replay, ok, err := replayIdempotent[InitiatePaymentResult](ctx, s, actor.IdempotencyKey, requestHash); err != nil || ok {
		return replay, err
	}

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return InitiatePaymentResult{}, err
	}
	if job.EmployerID != actor.SubjectID {
		return InitiatePaymentResult{}, domain.ErrForbidden
	}
	if job.Status != domain.JobStatusInProgress || job.CraftsmanID == "" {
		return InitiatePaymentResult{}, fmt.Errorf("%w: job must be in progress with an assigned craftsman", domain.ErrInvalidTransition)
	}

	amount := input.Amount
	if amount == 0 {
		amount = job.Budget
	}
	if amount > s.cfg.ChargeCap {
		amount = s.cfg.ChargeCap
	}
	commission, payout := domain.SplitCommission(amount, s.cfg.CommissionRateBps)

	existing, err := s.transactions.GetEscrowByJob(ctx, job.JobID)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return InitiatePaymentResult{}, err
	}
	if found && existing.Status != domain.TransactionStatusPending && existing.Status != domain.TransactionStatusFailed {
		return InitiatePaymentResult{}, fmt.Errorf("%w: job already has a %s payment", domain.ErrConflict, existing.Status)
	}

	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return InitiatePaymentResult{}, err
	}

	now := s.nowFn()
	provider := ""
	if s.gateway != nil {
		provider = s.gateway.ProviderFor(method)
	}
	var tx domain.Transaction
	transition := ports.Transition{}
	if found {
		tx = existing
		if err := tx.TransitionTo(domain.TransactionStatusPending, now); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return InitiatePaymentResult{}, err
		}
		tx.PaymentReference = uuid.NewString()
		tx.ExternalTransactionID = ""
		tx.LastError = ""
		transition.Transaction = &tx
	} else {
		txID := uuid.NewString()
		tx = domain.Transaction{
			TransactionID:    txID,
			Type:             domain.TransactionTypeEscrow,
			JobID:            job.JobID,
			EmployerID:       job.EmployerID,
			CraftsmanID:      job.CraftsmanID,
			CraftsmanPhone:   job.CraftsmanPhone,
			Currency:         s.cfg.Currency,
			PaymentReference: txID,
			Status:           domain.TransactionStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		transition.NewTransaction = &tx
	}
	tx.EmployerPhone = phone
	tx.PaymentMethod = method
	tx.Provider = provider
	tx.TotalAmount = amount
	tx.CommissionAmount = commission
	tx.DisbursementAmount = payout

	chargeReq := ports.ChargeRequest{
		Reference:     tx.PaymentReference,
		Amount:        amount,
		Currency:      tx.Currency,
		PaymentMethod: method,
		Phone:         phone,
		Email:         strings.TrimSpace(input.Email),
		FullName:      strings.TrimSpace(input.FullName),
		Narration:     fmt.Sprintf("%s escrow for %s", s.cfg.PlatformName, job.Title),
	}
	transition.Logs = []domain.PaymentLog{
		newPaymentLog(tx.TransactionID, domain.LogActionStateChange, domain.LogStatusInitiated, chargeLogView(chargeReq), nil, "", now),
	}
	if err := s.transitions.Commit(ctx, transition); err != nil {
		s.releaseIdempotency(ctx, actor.IdempotencyKey)
		return InitiatePaymentResult{}, err
	}

	result, chargeErr := s.gateway.Charge(ctx, chargeReq)
	if chargeErr != nil {
		return s.chargeFailed(ctx, actor, tx, chargeReq, chargeErr)
	}

	done := s.nowFn()
	logs := []domain.PaymentLog{
		newPaymentLog(tx.TransactionID, domain.GatewayAction(result.Provider, chargeActionSuffix(result.Provider)), domain.LogStatusInitiated, chargeLogView(chargeReq), result.Raw, "", done),
	}
	if result.Provider != "" {
		tx.Provider = result.Provider
	}
	event, err := s.escrowEvent(domain.EventPaymentInitiated, actor.RequestID, tx, "", done)
	if err != nil {
		return InitiatePaymentResult{}, err
	}
	if err := tx.TransitionTo(domain.TransactionStatusPending, done); err != nil {
		return InitiatePaymentResult{}, err
	}
	err = s.transitions.Commit(ctx, ports.Transition{Transaction: &tx, Logs: logs, Events: []ports.OutboxEvent{event}})
	if errors.Is(err, domain.ErrConcurrentUpdate) {
		// A webhook settled the charge before the initiation result was recorded.
		s.appendLog(ctx, logs[0])
		tx, err = s.transactions.GetByID(ctx, tx.TransactionID)
	}
	if err != nil {
		return InitiatePaymentResult{}, err
	}

	out := InitiatePaymentResult{
		Transaction:      tx,
		GatewayReference: result.GatewayReference,
		GatewayStatus:    result.Status,
		RedirectURL:      result.RedirectURL,
	}
	s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, out)
	return out, nil
}

// chargeFailed records a failed charge call. Rejections fail the transaction; outages leave it for reconciliation.
func (s *Service) chargeFailed(ctx context.Context, actor Actor, tx domain.Transaction, req ports.ChargeRequest, chargeErr error) (InitiatePaymentResult, error) {
	s.releaseIdempotency(ctx, actor.IdempotencyKey)
	now := s.nowFn()
	action := domain.GatewayAction(tx.Provider, chargeActionSuffix(tx.Provider)+"_ERROR")
	entry := newPaymentLog(tx.TransactionID, action, domain.LogStatusError, chargeLogView(req), nil, chargeErr.Error(), now)

	if isGatewayUnavailable(chargeErr) {
		s.appendLog(ctx, entry)
		s.logger.Warn("charge left pending after gateway outage",
			"operation", "initiate_payment",
			"outcome", "deferred",
			"transaction_id", tx.TransactionID,
			"error", chargeErr,
		)
		return InitiatePaymentResult{}, chargeErr
	}

	if err := tx.TransitionTo(domain.TransactionStatusFailed, now); err != nil {
		return InitiatePaymentResult{}, err
	}
	tx.LastError = chargeErr.Error()
	event, err := s.escrowEvent(domain.EventPaymentFailed, actor.RequestID, tx, chargeErr.Error(), now)
	if err != nil {
		return InitiatePaymentResult{}, err
	}
	if err := s.transitions.Commit(ctx, ports.Transition{
		Transaction: &tx,
		Logs:        []domain.PaymentLog{entry},
		Events:      []ports.OutboxEvent{event},
	}); err != nil {
		return InitiatePaymentResult{}, err
	}
	if errors.Is(chargeErr, domain.ErrGatewayRejected) {
		return InitiatePaymentResult{}, chargeErr
	}
	return InitiatePaymentResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayRejected, chargeErr)
}

// VerifyPayment asks the gateway for the charge outcome and applies it.
func (s *Service) VerifyPayment(ctx context.Context, actor Actor, transactionID string) (VerifyPaymentResult, error) {
	if err := requireRole(actor, domain.RoleEmployer, domain.RoleAdmin); err != nil {
		return VerifyPaymentResult{}, err
	}
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return VerifyPaymentResult{}, err
	}
	if tx.Type != domain.TransactionTypeEscrow {
		return VerifyPaymentResult{}, fmt.Errorf("%w: not an escrow transaction", domain.ErrInvalidInput)
	}
	if actor.Role != domain.RoleAdmin && tx.EmployerID != actor.SubjectID {
		return VerifyPaymentResult{}, domain.ErrForbidden
	}

	status, err := s.gateway.VerifyCharge(ctx, tx.PaymentMethod, tx.PaymentReference)
	now := s.nowFn()
	if err != nil {
		s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.LogActionVerify, domain.LogStatusError, map[string]string{"reference": tx.PaymentReference}, nil, err.Error(), now))
		return VerifyPaymentResult{}, err
	}

	tx, err = s.settleCharge(ctx, tx, chargeOutcome{
		Status:    status.Status,
		GatewayID: status.GatewayID,
		Amount:    status.Amount,
		Currency:  status.Currency,
		Raw:       status.Raw,
		Action:    domain.LogActionVerify,
		TraceID:   actor.RequestID,
	})
	if err != nil {
		return VerifyPaymentResult{}, err
	}
	return VerifyPaymentResult{Transaction: tx, GatewayStatus: status.Status, GatewayID: status.GatewayID}, nil
}

func (s *Service) GetPaymentStatus(ctx context.Context, actor Actor, transactionID string) (PaymentStatus, error) {
	if err := requireActor(actor); err != nil {
		return PaymentStatus{}, err
	}
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if actor.Role != domain.RoleAdmin && tx.EmployerID != actor.SubjectID && tx.CraftsmanID != actor.SubjectID {
		return PaymentStatus{}, domain.ErrForbidden
	}
	logs, err := s.paymentLogs.ListByTransaction(ctx, tx.TransactionID)
	if err != nil {
		return PaymentStatus{}, err
	}
	return PaymentStatus{Transaction: tx, Logs: logs}, nil
}

type chargeOutcome struct {
	Status     string
	GatewayID  string
	Amount     int64
	Currency   string
	Raw        json.RawMessage
	Action     string
	TraceID    string
	ViaWebhook bool
}

// settleCharge applies a gateway charge outcome to a pending escrow transaction.
// Outcomes for transactions that already left PENDING are logged and ignored.
func (s *Service) settleCharge(ctx context.Context, tx domain.Transaction, outcome chargeOutcome) (domain.Transaction, error) {
	now := s.nowFn()
	if tx.Status != domain.TransactionStatusPending {
		s.appendLog(ctx, newPaymentLog(tx.TransactionID, outcome.Action, domain.LogStatusProcessing, nil, outcome.Raw,
			fmt.Sprintf("ignored %s outcome for %s transaction", outcome.Status, tx.Status), now))
		return tx, nil
	}

	switch outcome.Status {
	case ports.GatewayStatusSuccessful:
		if outcome.Amount < tx.TotalAmount || !strings.EqualFold(outcome.Currency, tx.Currency) {
			reason := fmt.Sprintf("gateway reported %d %s, expected %d %s", outcome.Amount, outcome.Currency, tx.TotalAmount, tx.Currency)
			s.logger.Error("charge amount mismatch",
				"operation", "settle_charge",
				"outcome", "rejected",
				"transaction_id", tx.TransactionID,
				"error", reason,
			)
			return s.failCharge(ctx, tx, outcome, reason, now)
		}
		job, err := s.jobs.GetByID(ctx, tx.JobID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if err := tx.TransitionTo(domain.TransactionStatusCompleted, now); err != nil {
			return domain.Transaction{}, err
		}
		if err := job.TransitionTo(domain.JobStatusPaidInEscrow, now); err != nil {
			return domain.Transaction{}, err
		}
		tx.ExternalTransactionID = outcome.GatewayID
		tx.LastError = ""
		if outcome.ViaWebhook {
			at := now
			tx.WebhookReceivedAt = &at
		}
		event, err := s.escrowEvent(domain.EventEscrowFunded, outcome.TraceID, tx, "", now)
		if err != nil {
			return domain.Transaction{}, err
		}
		err = s.transitions.Commit(ctx, ports.Transition{
			Job:         &job,
			Transaction: &tx,
			Logs:        []domain.PaymentLog{newPaymentLog(tx.TransactionID, outcome.Action, domain.LogStatusSuccess, nil, outcome.Raw, "", now)},
			Events:      []ports.OutboxEvent{event},
		})
		if err != nil {
			return domain.Transaction{}, err
		}
		return tx, nil

	case ports.GatewayStatusFailed:
		return s.failCharge(ctx, tx, outcome, "gateway reported charge failure", now)

	default:
		s.appendLog(ctx, newPaymentLog(tx.TransactionID, outcome.Action, domain.LogStatusProcessing, nil, outcome.Raw, "", now))
		return tx, nil
	}
}

// failCharge moves a pending charge to FAILED so the employer can pay again under a new reference.
func (s *Service) failCharge(ctx context.Context, tx domain.Transaction, outcome chargeOutcome, reason string, now time.Time) (domain.Transaction, error) {
	if err := tx.TransitionTo(domain.TransactionStatusFailed, now); err != nil {
		return domain.Transaction{}, err
	}
	tx.ExternalTransactionID = outcome.GatewayID
	tx.LastError = reason
	if outcome.ViaWebhook {
		at := now
		tx.WebhookReceivedAt = &at
	}
	event, err := s.escrowEvent(domain.EventPaymentFailed, outcome.TraceID, tx, reason, now)
	if err != nil {
		return domain.Transaction{}, err
	}
	err = s.transitions.Commit(ctx, ports.Transition{
		Transaction: &tx,
		Logs:        []domain.PaymentLog{newPaymentLog(tx.TransactionID, outcome.Action, domain.LogStatusFailed, nil, outcome.Raw, reason, now)},
		Events:      []ports.OutboxEvent{event},
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func chargeActionSuffix(provider string) string {
	if strings.EqualFold(provider, "flutterwave") {
		return "INITIATE"
	}
	return "REQUEST_TO_PAY"
}

// chargeLogView is the audit copy of a charge request with the phone masked.
func chargeLogView(req ports.ChargeRequest) map[string]any {
	return map[string]any{
		"reference":      req.Reference,
		"amount":         req.Amount,
		"currency":       req.Currency,
		"payment_method": req.PaymentMethod,
		"phone":          maskPhone(req.Phone),
	}
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
