package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// Outgoing transfers (payouts, refunds, fee withdrawals) are always persisted in an in-flight
// status under a fixed reference before the gateway is called. Webhooks and reconciliation settle them.

type transferKind string

const (
	transferPayout     transferKind = "TRANSFER"
	transferRefund     transferKind = "REFUND"
	transferWithdrawal transferKind = "WITHDRAW"
)

func transferKindOf(tx domain.Transaction) transferKind {
	switch {
	case tx.Type == domain.TransactionTypeAdminWithdrawal:
		return transferWithdrawal
	case tx.Status == domain.TransactionStatusRefundInitiated:
		return transferRefund
	default:
		return transferPayout
	}
}

func transferLockKey(tx domain.Transaction) string {
	if tx.Type == domain.TransactionTypeAdminWithdrawal {
		return feesLockKey
	}
	return jobLockKey(tx.JobID)
}

func (s *Service) transferRequest(tx domain.Transaction, beneficiary string) ports.TransferRequest {
	req := ports.TransferRequest{
		Reference:       tx.DisbursementReference,
		BeneficiaryName: beneficiary,
		Currency:        tx.Currency,
	}
	switch transferKindOf(tx) {
	case transferWithdrawal:
		req.Phone = tx.EmployerPhone
		req.PaymentMethod = tx.PaymentMethod
		req.Amount = tx.TotalAmount
		req.Narration = fmt.Sprintf("%s fee withdrawal %s", s.cfg.PlatformName, s.formatAmount(tx.TotalAmount))
		if req.BeneficiaryName == "" {
			req.BeneficiaryName = s.cfg.PlatformName
		}
	case transferRefund:
		req.Phone = tx.EmployerPhone
		req.PaymentMethod = domain.PaymentMethodForMSISDN(tx.EmployerPhone, tx.PaymentMethod)
		req.Amount = tx.TotalAmount
		req.Narration = fmt.Sprintf("%s refund %s", s.cfg.PlatformName, s.formatAmount(tx.TotalAmount))
		if req.BeneficiaryName == "" {
			req.BeneficiaryName = "Employer"
		}
	default:
		req.Phone = tx.CraftsmanPhone
		req.PaymentMethod = domain.PaymentMethodForMSISDN(tx.CraftsmanPhone, tx.PaymentMethod)
		req.Amount = tx.DisbursementAmount
		req.Narration = fmt.Sprintf("%s payout %s", s.cfg.PlatformName, s.formatAmount(tx.DisbursementAmount))
	}
	return req
}

// beneficiaryFor resolves the display name used when a transfer is resubmitted without a caller.
func (s *Service) beneficiaryFor(ctx context.Context, tx domain.Transaction) (string, error) {
	if transferKindOf(tx) != transferPayout {
		return "", nil
	}
	job, err := s.jobs.GetByID(ctx, tx.JobID)
	if err != nil {
		return "", err
	}
	return job.CraftsmanName, nil
}

// submitTransfer sends the transfer of an in-flight transaction and applies the immediate outcome.
// Every submission counts one attempt. A gateway outage leaves the transaction in flight for
// reconciliation and is not an error.
func (s *Service) submitTransfer(ctx context.Context, tx domain.Transaction, beneficiary, traceID string) (domain.Transaction, error) {
	if !tx.TransferInFlight() {
		return domain.Transaction{}, fmt.Errorf("%w: no transfer in flight for %s transaction", domain.ErrInvalidTransition, tx.Status)
	}
	kind := transferKindOf(tx)
	req := s.transferRequest(tx, beneficiary)
	provider := s.gateway.ProviderFor(req.PaymentMethod)

	tx.DisbursementAttempts++
	tx.UpdatedAt = s.nowFn()
	if err := s.transitions.Commit(ctx, ports.Transition{
		Transaction: &tx,
		Logs: []domain.PaymentLog{newPaymentLog(tx.TransactionID, domain.GatewayAction(provider, string(kind)), domain.LogStatusInitiated,
			transferLogView(req), nil, "", tx.UpdatedAt)},
	}); err != nil {
		return domain.Transaction{}, err
	}

	result, err := s.gateway.Transfer(ctx, req)
	if err != nil {
		s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.GatewayAction(provider, string(kind)+"_ERROR"), domain.LogStatusError, transferLogView(req), nil, err.Error(), s.nowFn()))
		if isGatewayUnavailable(err) {
			s.logger.Warn("transfer left in flight after gateway outage",
				"operation", "submit_transfer",
				"outcome", "deferred",
				"transaction_id", tx.TransactionID,
				"kind", string(kind),
				"attempt", tx.DisbursementAttempts,
				"error", err,
			)
			return tx, nil
		}
		if _, revertErr := s.applyTransferOutcome(ctx, tx, transferOutcome{
			Status:  ports.GatewayStatusFailed,
			Request: transferLogView(req),
			Action:  domain.GatewayAction(provider, string(kind)),
			TraceID: traceID,
			Reason:  err.Error(),
		}); revertErr != nil {
			return domain.Transaction{}, revertErr
		}
		if errors.Is(err, domain.ErrGatewayRejected) {
			return domain.Transaction{}, err
		}
		return domain.Transaction{}, fmt.Errorf("%w: %v", domain.ErrGatewayRejected, err)
	}

	if result.Provider != "" {
		provider = result.Provider
	}
	updated, err := s.applyTransferOutcome(ctx, tx, transferOutcome{
		Status:     result.Status,
		TransferID: result.TransferID,
		Raw:        result.Raw,
		Request:    transferLogView(req),
		Action:     domain.GatewayAction(provider, string(kind)),
		TraceID:    traceID,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	if result.Status == ports.GatewayStatusFailed {
		return domain.Transaction{}, fmt.Errorf("%w: %s transfer failed", domain.ErrGatewayRejected, kindLabel(kind))
	}
	return updated, nil
}

func kindLabel(kind transferKind) string {
	switch kind {
	case transferRefund:
		return "refund"
	case transferWithdrawal:
		return "fee withdrawal"
	default:
		return "payout"
	}
}

type transferOutcome struct {
	Status     string
	TransferID string
	Raw        json.RawMessage
	Request    any
	Action     string
	TraceID    string
	Reason     string
}

// applyTransferOutcome settles an in-flight transfer. Outcomes for transactions with nothing in flight are logged and ignored.
func (s *Service) applyTransferOutcome(ctx context.Context, tx domain.Transaction, outcome transferOutcome) (domain.Transaction, error) {
	now := s.nowFn()
	if !tx.TransferInFlight() {
		s.appendLog(ctx, newPaymentLog(tx.TransactionID, outcome.Action, domain.LogStatusProcessing, outcome.Request, outcome.Raw,
			fmt.Sprintf("ignored %s transfer outcome for %s transaction", outcome.Status, tx.Status), now))
		return tx, nil
	}
	if outcome.TransferID != "" {
		tx.TransferID = outcome.TransferID
	}
	if outcome.Status == ports.GatewayStatusFailed && outcome.Reason == "" {
		outcome.Reason = "gateway reported transfer failure"
	}

	switch transferKindOf(tx) {
	case transferWithdrawal:
		return s.settleWithdrawal(ctx, tx, outcome, now)
	case transferRefund:
		return s.settleRefund(ctx, tx, outcome, now)
	default:
		return s.settlePayout(ctx, tx, outcome, now)
	}
}

// settlePayout finalizes a successful payout, reverts a failed one to held funds, and records pending transfer ids.
func (s *Service) settlePayout(ctx context.Context, tx domain.Transaction, outcome transferOutcome, now time.Time) (domain.Transaction, error) {
	job, err := s.jobs.GetByID(ctx, tx.JobID)
	if err != nil {
		return domain.Transaction{}, err
	}

	switch outcome.Status {
	case ports.GatewayStatusSuccessful:
		if err := tx.TransitionTo(domain.TransactionStatusPaidToCraftsman, now); err != nil {
			return domain.Transaction{}, err
		}
		if err := job.TransitionTo(domain.JobStatusCompleted, now); err != nil {
			return domain.Transaction{}, err
		}
		paidAt := now
		tx.PaidAt = &paidAt
		tx.LastError = ""
		return s.commitTransfer(ctx, &job, tx, outcome, domain.LogStatusSuccess, domain.EventDisbursementCompleted, now)

	case ports.GatewayStatusFailed:
		if err := tx.TransitionTo(domain.TransactionStatusCompleted, now); err != nil {
			return domain.Transaction{}, err
		}
		if err := job.TransitionTo(domain.JobStatusPaidInEscrow, now); err != nil {
			return domain.Transaction{}, err
		}
		tx.LastError = outcome.Reason
		return s.commitTransfer(ctx, &job, tx, outcome, domain.LogStatusFailed, domain.EventDisbursementFailed, now)

	default:
		tx.UpdatedAt = now
		return s.commitTransfer(ctx, nil, tx, outcome, domain.LogStatusProcessing, domain.EventDisbursementInitiated, now)
	}
}

// settleRefund cancels the job once the employer has the money back. A failed refund returns the funds to held.
func (s *Service) settleRefund(ctx context.Context, tx domain.Transaction, outcome transferOutcome, now time.Time) (domain.Transaction, error) {
	switch outcome.Status {
	case ports.GatewayStatusSuccessful:
		job, err := s.jobs.GetByID(ctx, tx.JobID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if err := tx.TransitionTo(domain.TransactionStatusRefunded, now); err != nil {
			return domain.Transaction{}, err
		}
		if err := job.TransitionTo(domain.JobStatusCanceled, now); err != nil {
			return domain.Transaction{}, err
		}
		tx.LastError = ""
		return s.commitTransfer(ctx, &job, tx, outcome, domain.LogStatusSuccess, domain.EventEscrowRefunded, now)

	case ports.GatewayStatusFailed:
		if err := tx.TransitionTo(domain.TransactionStatusCompleted, now); err != nil {
			return domain.Transaction{}, err
		}
		tx.LastError = outcome.Reason
		s.logger.Error("refund transfer failed",
			"operation", "settle_refund",
			"outcome", "failure",
			"transaction_id", tx.TransactionID,
			"job_id", tx.JobID,
			"error", outcome.Reason,
		)
		return s.commitTransfer(ctx, nil, tx, outcome, domain.LogStatusFailed, domain.EventRefundFailed, now)

	default:
		tx.UpdatedAt = now
		return s.commitTransfer(ctx, nil, tx, outcome, domain.LogStatusProcessing, "", now)
	}
}

// settleWithdrawal marks a fee withdrawal done or failed. Failed withdrawals no longer count against available fees.
func (s *Service) settleWithdrawal(ctx context.Context, tx domain.Transaction, outcome transferOutcome, now time.Time) (domain.Transaction, error) {
	var (
		logStatus string
		eventType string
	)
	switch outcome.Status {
	case ports.GatewayStatusSuccessful:
		if err := tx.TransitionTo(domain.TransactionStatusCompleted, now); err != nil {
			return domain.Transaction{}, err
		}
		paidAt := now
		tx.PaidAt = &paidAt
		tx.LastError = ""
		logStatus, eventType = domain.LogStatusSuccess, domain.EventFeesWithdrawn
	case ports.GatewayStatusFailed:
		if err := tx.TransitionTo(domain.TransactionStatusFailed, now); err != nil {
			return domain.Transaction{}, err
		}
		tx.LastError = outcome.Reason
		logStatus, eventType = domain.LogStatusFailed, domain.EventFeesWithdrawalFailed
	default:
		tx.UpdatedAt = now
		return s.commitTransfer(ctx, nil, tx, outcome, domain.LogStatusProcessing, "", now)
	}

	event, err := s.newEvent(eventType, outcome.TraceID, tx.TransactionID, contracts.FeesWithdrawnPayload{
		TransactionID: tx.TransactionID,
		AdminID:       tx.EmployerID,
		Amount:        tx.TotalAmount,
		Currency:      tx.Currency,
		Reference:     tx.DisbursementReference,
		WithdrawnAt:   now.Format(time.RFC3339),
		Reason:        tx.LastError,
	}, now)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := s.transitions.Commit(ctx, ports.Transition{
		Transaction: &tx,
		Logs:        []domain.PaymentLog{newPaymentLog(tx.TransactionID, outcome.Action, logStatus, outcome.Request, outcome.Raw, tx.LastError, now)},
		Events:      []ports.OutboxEvent{event},
	}); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// commitTransfer stores a transfer outcome with its audit row and, when eventType is set, its escrow event.
func (s *Service) commitTransfer(ctx context.Context, job *domain.Job, tx domain.Transaction, outcome transferOutcome, logStatus, eventType string, now time.Time) (domain.Transaction, error) {
	transition := ports.Transition{
		Job:         job,
		Transaction: &tx,
		Logs:        []domain.PaymentLog{newPaymentLog(tx.TransactionID, outcome.Action, logStatus, outcome.Request, outcome.Raw, tx.LastError, now)},
	}
	if eventType != "" {
		event, err := s.escrowEvent(eventType, outcome.TraceID, tx, tx.LastError, now)
		if err != nil {
			return domain.Transaction{}, err
		}
		transition.Events = []ports.OutboxEvent{event}
	}
	if err := s.transitions.Commit(ctx, transition); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func transferLogView(req ports.TransferRequest) map[string]any {
	return map[string]any{
		"reference":      req.Reference,
		"amount":         req.Amount,
		"currency":       req.Currency,
		"payment_method": req.PaymentMethod,
		"phone":          maskPhone(req.Phone),
	}
}
