package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

// WithdrawFees transfers accumulated platform commission to an admin-controlled wallet.
func (s *Service) WithdrawFees(ctx context.Context, actor Actor, input WithdrawFeesInput) (domain.Transaction, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Transaction{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return domain.Transaction{}, err
	}
	if input.Amount <= 0 {
		return domain.Transaction{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	phone, err := domain.NormalizeMSISDN(input.Phone)
	if err != nil {
		return domain.Transaction{}, err
	}

	requestHash := hashJSON(struct {
		Actor string
		Input WithdrawFeesInput
	}{actor.SubjectID, input})
	if replay, ok, err := replayIdempotent[domain.Transaction](ctx, s, actor.IdempotencyKey, requestHash); err != nil || ok {
		return replay, err
	}

	var out domain.Transaction
	err = s.withLock(ctx, feesLockKey, func() error {
		summary, err := s.platformSummary(ctx)
		if err != nil {
			return err
		}
		if input.Amount > summary.AvailableForWithdraw {
			return fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientFunds, input.Amount, summary.AvailableForWithdraw)
		}
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return err
		}

		txID := uuid.NewString()
		name := strings.TrimSpace(input.Name)
		now := s.nowFn()
		method := domain.PaymentMethodForMSISDN(phone, domain.PaymentMethodMTN)
		tx := domain.Transaction{
			TransactionID:         txID,
			Type:                  domain.TransactionTypeAdminWithdrawal,
			EmployerID:            actor.SubjectID,
			EmployerPhone:         phone,
			TotalAmount:           input.Amount,
			DisbursementAmount:    input.Amount,
			Currency:              s.cfg.Currency,
			PaymentMethod:         method,
			Provider:              s.gateway.ProviderFor(method),
			DisbursementReference: withdrawReferencePrefix + txID,
			ConfirmedBy:           domain.ConfirmedByAdmin,
			Status:                domain.TransactionStatusDisbursementInitiated,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.transitions.Commit(ctx, ports.Transition{
			NewTransaction: &tx,
			Logs: []domain.PaymentLog{newPaymentLog(tx.TransactionID, domain.LogActionFeeWithdrawn, domain.LogStatusProcessing,
				map[string]any{"admin_id": actor.SubjectID, "reference": tx.DisbursementReference, "amount": tx.TotalAmount}, nil, "", now)},
		}); err != nil {
			s.releaseIdempotency(ctx, actor.IdempotencyKey)
			return err
		}

		tx, err = s.submitTransfer(ctx, tx, name, actor.RequestID)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayRejected) {
				s.releaseIdempotency(ctx, actor.IdempotencyKey)
			}
			s.logger.Error("fee withdrawal failed",
				"operation", "withdraw_fees",
				"outcome", "failure",
				"transaction_id", txID,
				"error", err,
			)
			return err
		}
		out = tx
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, out)
	return out, nil
}

func (s *Service) PlatformSummary(ctx context.Context, actor Actor) (domain.PlatformSummary, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.PlatformSummary{}, err
	}
	return s.platformSummary(ctx)
}

// platformSummary computes fees from paid-out escrows minus every withdrawal that did not fail.
// Withdrawals still in flight count as withdrawn.
func (s *Service) platformSummary(ctx context.Context) (domain.PlatformSummary, error) {
	_, fees, err := s.transactions.SumAmounts(ctx, ports.TransactionFilter{
		Type:   domain.TransactionTypeEscrow,
		Status: domain.TransactionStatusPaidToCraftsman,
	})
	if err != nil {
		return domain.PlatformSummary{}, err
	}
	withdrawn, _, err := s.transactions.SumAmounts(ctx, ports.TransactionFilter{
		Type: domain.TransactionTypeAdminWithdrawal,
	})
	if err != nil {
		return domain.PlatformSummary{}, err
	}
	failed, _, err := s.transactions.SumAmounts(ctx, ports.TransactionFilter{
		Type:   domain.TransactionTypeAdminWithdrawal,
		Status: domain.TransactionStatusFailed,
	})
	if err != nil {
		return domain.PlatformSummary{}, err
	}
	withdrawn -= failed
	available := fees - withdrawn
	if available < 0 {
		available = 0
	}
	return domain.PlatformSummary{
		TotalPlatformFees:    fees,
		Withdrawn:            withdrawn,
		AvailableForWithdraw: available,
		Currency:             s.cfg.Currency,
		CalculatedAt:         s.nowFn(),
	}, nil
}

// EscrowJobs lists jobs whose funds are currently held, with their escrow transaction.
func (s *Service) EscrowJobs(ctx context.Context, actor Actor, limit, offset int) ([]domain.EscrowJob, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	jobs, err := s.jobs.List(ctx, ports.JobFilter{Status: domain.JobStatusPaidInEscrow, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	out := make([]domain.EscrowJob, 0, len(jobs))
	for _, job := range jobs {
		tx, err := s.transactions.GetEscrowByJob(ctx, job.JobID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, domain.EscrowJob{Job: job, Transaction: tx})
	}
	return out, nil
}

func (s *Service) CompletedPayouts(ctx context.Context, actor Actor, limit, offset int) ([]domain.Transaction, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.transactions.List(ctx, ports.TransactionFilter{
		Type:   domain.TransactionTypeEscrow,
		Status: domain.TransactionStatusPaidToCraftsman,
		Limit:  limit,
		Offset: offset,
	})
}

// AdminActions merges fee withdrawals and admin-confirmed payouts, newest first.
func (s *Service) AdminActions(ctx context.Context, actor Actor, limit int) ([]domain.AdminAction, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	limit, _ = normalizePage(limit, 0)
	withdrawals, err := s.transactions.List(ctx, ports.TransactionFilter{Type: domain.TransactionTypeAdminWithdrawal, Limit: limit})
	if err != nil {
		return nil, err
	}
	emergencies, err := s.transactions.List(ctx, ports.TransactionFilter{
		Type:        domain.TransactionTypeEscrow,
		Status:      domain.TransactionStatusPaidToCraftsman,
		ConfirmedBy: domain.ConfirmedByAdmin,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	actions := make([]domain.AdminAction, 0, len(withdrawals)+len(emergencies))
	for _, tx := range withdrawals {
		actions = append(actions, domain.AdminAction{
			Type:          domain.AdminActionWithdrawal,
			TransactionID: tx.TransactionID,
			Amount:        tx.TotalAmount,
			Reference:     tx.DisbursementReference,
			Status:        tx.Status,
			OccurredAt:    tx.CreatedAt,
		})
	}
	for _, tx := range emergencies {
		at := tx.UpdatedAt
		if tx.PaidAt != nil {
			at = *tx.PaidAt
		}
		actions = append(actions, domain.AdminAction{
			Type:          domain.AdminActionEmergencyConfirm,
			TransactionID: tx.TransactionID,
			JobID:         tx.JobID,
			Amount:        tx.DisbursementAmount,
			Reference:     tx.DisbursementReference,
			Status:        tx.Status,
			OccurredAt:    at,
		})
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].OccurredAt.After(actions[j].OccurredAt)
	})
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

func (s *Service) DashboardStats(ctx context.Context, actor Actor) (domain.DashboardStats, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.DashboardStats{}, err
	}
	stats := domain.DashboardStats{Currency: s.cfg.Currency}
	total, err := s.transactions.Count(ctx, ports.TransactionFilter{Type: domain.TransactionTypeEscrow})
	if err != nil {
		return domain.DashboardStats{}, err
	}
	stats.TotalTransactions = total

	for _, status := range []domain.TransactionStatus{
		domain.TransactionStatusCompleted,
		domain.TransactionStatusDisbursementInitiated,
		domain.TransactionStatusPaidToCraftsman,
	} {
		filter := ports.TransactionFilter{Type: domain.TransactionTypeEscrow, Status: status}
		revenue, commission, err := s.transactions.SumAmounts(ctx, filter)
		if err != nil {
			return domain.DashboardStats{}, err
		}
		count, err := s.transactions.Count(ctx, filter)
		if err != nil {
			return domain.DashboardStats{}, err
		}
		stats.TotalRevenue += revenue
		stats.TotalCommission += commission
		if status == domain.TransactionStatusPaidToCraftsman {
			stats.PaidOutTransactions += count
		} else {
			stats.CompletedTransactions += count
		}
	}
	return stats, nil
}

func (s *Service) ListTransactions(ctx context.Context, actor Actor, input ListTransactionsInput) ([]domain.Transaction, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	filter := ports.TransactionFilter{}
	if input.Status != "" {
		status, err := domain.ParseTransactionStatus(strings.ToUpper(input.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	filter.Limit, filter.Offset = normalizePage(input.Limit, input.Offset)
	return s.transactions.List(ctx, filter)
}

// GetJobEscrow returns a job with its escrow transaction for internal callers. The bool is false when no payment exists yet.
func (s *Service) GetJobEscrow(ctx context.Context, jobID string) (domain.EscrowJob, bool, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return domain.EscrowJob{}, false, err
	}
	tx, err := s.transactions.GetEscrowByJob(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EscrowJob{Job: job}, false, nil
	}
	if err != nil {
		return domain.EscrowJob{}, false, err
	}
	return domain.EscrowJob{Job: job, Transaction: tx}, true, nil
}

// InternalPlatformSummary serves trusted internal callers without an actor.
func (s *Service) InternalPlatformSummary(ctx context.Context) (domain.PlatformSummary, error) {
	return s.platformSummary(ctx)
}
