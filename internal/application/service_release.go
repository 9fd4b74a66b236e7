package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

const (
	payoutReferencePrefix    = "payout_"
	emergencyReferencePrefix = "admin_emergency_"
	refundReferencePrefix    = "refund_"
	withdrawReferencePrefix  = "admin_withdraw_"
)

// ConfirmRelease is the employer confirming the work and releasing escrow to the craftsman.
func (s *Service) ConfirmRelease(ctx context.Context, actor Actor, jobID string) (ReleaseResult, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return ReleaseResult{}, err
	}
	return s.release(ctx, actor, jobID, domain.ConfirmedByEmployer)
}

// AdminConfirmRelease is the emergency release path used when the employer is unresponsive.
func (s *Service) AdminConfirmRelease(ctx context.Context, actor Actor, jobID string) (ReleaseResult, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return ReleaseResult{}, err
	}
	return s.release(ctx, actor, jobID, domain.ConfirmedByAdmin)
}

func (s *Service) release(ctx context.Context, actor Actor, jobID, confirmedBy string) (ReleaseResult, error) {
	if err := requireIdempotencyKey(actor); err != nil {
		return ReleaseResult{}, err
	}
	requestHash := hashJSON(struct {
		Actor       string
		JobID       string
		ConfirmedBy string
	}{actor.SubjectID, jobID, confirmedBy})
	if replay, ok, err := replayIdempotent[ReleaseResult](ctx, s, actor.IdempotencyKey, requestHash); err != nil || ok {
		return replay, err
	}

	var out ReleaseResult
	err := s.withLock(ctx, jobLockKey(jobID), func() error {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if confirmedBy == domain.ConfirmedByEmployer && job.EmployerID != actor.SubjectID {
			return domain.ErrForbidden
		}
		if job.Status != domain.JobStatusPaidInEscrow {
			return fmt.Errorf("%w: job is %s, funds are not held in escrow", domain.ErrInvalidTransition, job.Status)
		}
		tx, err := s.transactions.GetEscrowByJob(ctx, jobID)
		if err != nil {
			return err
		}
		if tx.Status != domain.TransactionStatusCompleted {
			return fmt.Errorf("%w: escrow transaction is %s", domain.ErrInvalidTransition, tx.Status)
		}
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return err
		}

		now := s.nowFn()
		tx.CommissionAmount, tx.DisbursementAmount = domain.SplitCommission(tx.TotalAmount, s.cfg.CommissionRateBps)
		if err := tx.TransitionTo(domain.TransactionStatusDisbursementInitiated, now); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}
		if err := job.TransitionTo(domain.JobStatusDisbursed, now); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}
		tx.ConfirmedBy = confirmedBy
		tx.DisbursementReference = payoutReferencePrefix + tx.TransactionID
		if confirmedBy == domain.ConfirmedByAdmin {
			tx.DisbursementReference = emergencyReferencePrefix + tx.TransactionID
		}
		tx.TransferID = ""
		tx.DisbursementAttempts = 0
		tx.LastError = ""
		if tx.CraftsmanPhone == "" {
			tx.CraftsmanPhone = job.CraftsmanPhone
		}
		if err := s.transitions.Commit(ctx, ports.Transition{
			Job:         &job,
			Transaction: &tx,
			Logs: []domain.PaymentLog{newPaymentLog(tx.TransactionID, domain.LogActionStateChange, domain.LogStatusProcessing,
				map[string]any{"confirmed_by": confirmedBy, "reference": tx.DisbursementReference, "amount": tx.DisbursementAmount}, nil, "", now)},
		}); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}

		tx, err = s.submitTransfer(ctx, tx, job.CraftsmanName, actor.RequestID)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayRejected) {
				s.releaseIdempotency(ctx, actor.IdempotencyKey)
			}
			return err
		}
		job, err = s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		out = ReleaseResult{Transaction: tx, JobStatus: job.Status}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}

// RefundEscrow returns held funds to the employer. The escrow is marked REFUND_INITIATED before the
// transfer is sent, which blocks any release until the refund settles. The job is canceled only once
// the gateway confirms the refund; a failed refund returns the funds to held.
func (s *Service) RefundEscrow(ctx context.Context, actor Actor, jobID string) (ReleaseResult, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return ReleaseResult{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return ReleaseResult{}, err
	}
	requestHash := hashJSON(struct {
		Actor  string
		JobID  string
		Refund bool
	}{actor.SubjectID, jobID, true})
	if replay, ok, err := replayIdempotent[ReleaseResult](ctx, s, actor.IdempotencyKey, requestHash); err != nil || ok {
		return replay, err
	}

	var out ReleaseResult
	err := s.withLock(ctx, jobLockKey(jobID), func() error {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.JobStatusPaidInEscrow {
			return fmt.Errorf("%w: job is %s, funds are not held in escrow", domain.ErrInvalidTransition, job.Status)
		}
		tx, err := s.transactions.GetEscrowByJob(ctx, jobID)
		if err != nil {
			return err
		}
		if tx.Status != domain.TransactionStatusCompleted {
			return fmt.Errorf("%w: escrow transaction is %s", domain.ErrInvalidTransition, tx.Status)
		}
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return err
		}

		now := s.nowFn()
		if err := tx.TransitionTo(domain.TransactionStatusRefundInitiated, now); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}
		tx.DisbursementReference = refundReferencePrefix + tx.TransactionID
		tx.TransferID = ""
		tx.DisbursementAttempts = 0
		tx.LastError = ""
		event, err := s.escrowEvent(domain.EventRefundInitiated, actor.RequestID, tx, "", now)
		if err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}
		if err := s.transitions.Commit(ctx, ports.Transition{
			Transaction: &tx,
			Logs: []domain.PaymentLog{newPaymentLog(tx.TransactionID, domain.LogActionStateChange, domain.LogStatusProcessing,
				map[string]any{"refunded_by": actor.SubjectID, "reference": tx.DisbursementReference, "amount": tx.TotalAmount}, nil, "", now)},
			Events: []ports.OutboxEvent{event},
		}); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}

		tx, err = s.submitTransfer(ctx, tx, "", actor.RequestID)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayRejected) {
				s.releaseIdempotency(ctx, actor.IdempotencyKey)
			}
			return err
		}
		job, err = s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		out = ReleaseResult{Transaction: tx, JobStatus: job.Status}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}
