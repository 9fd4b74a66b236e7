package application

import (
	"context"
	"errors"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// ReconcileOnce settles transactions whose gateway outcome was never delivered.
// Pending charges are verified. Payouts, refunds and fee withdrawals still in flight are polled or
// resubmitted with their original reference.
func (s *Service) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	cutoff := s.nowFn().Add(-s.cfg.ReconcileAge)

	pending, err := s.transactions.List(ctx, ports.TransactionFilter{
		Type:          domain.TransactionTypeEscrow,
		Status:        domain.TransactionStatusPending,
		UpdatedBefore: &cutoff,
		Limit:         s.cfg.ReconcileBatchSize,
	})
	if err != nil {
		return result, err
	}
	for _, tx := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++
		s.reconcileCharge(ctx, tx, &result)
	}

	for _, filter := range []ports.TransactionFilter{
		{Type: domain.TransactionTypeEscrow, Status: domain.TransactionStatusDisbursementInitiated},
		{Type: domain.TransactionTypeEscrow, Status: domain.TransactionStatusRefundInitiated},
		{Type: domain.TransactionTypeAdminWithdrawal, Status: domain.TransactionStatusDisbursementInitiated},
	} {
		filter.UpdatedBefore = &cutoff
		filter.Limit = s.cfg.ReconcileBatchSize
		inFlight, err := s.transactions.List(ctx, filter)
		if err != nil {
			return result, err
		}
		for _, tx := range inFlight {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Checked++
			err := s.withLock(ctx, transferLockKey(tx), func() error {
				return s.reconcileTransfer(ctx, tx.TransactionID, &result)
			})
			if err != nil {
				result.Errors++
				s.logger.Warn("transfer reconciliation failed",
					"operation", "reconcile_transfer",
					"outcome", "failure",
					"transaction_id", tx.TransactionID,
					"error", err,
				)
			}
		}
	}

	s.logger.Info("reconciliation pass finished",
		"operation", "reconcile",
		"outcome", "success",
		"checked", result.Checked,
		"funded", result.Funded,
		"failed", result.Failed,
		"paid", result.Paid,
		"reverted", result.Reverted,
		"resubmitted", result.Resubmitted,
		"errors", result.Errors,
	)
	return result, nil
}

func (s *Service) reconcileCharge(ctx context.Context, tx domain.Transaction, result *ReconcileResult) {
	status, err := s.gateway.VerifyCharge(ctx, tx.PaymentMethod, tx.PaymentReference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The gateway never saw the charge; treat it as failed so the employer can retry.
			status.Status = ports.GatewayStatusFailed
		} else {
			result.Errors++
			s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.LogActionReconcile, domain.LogStatusError, nil, nil, err.Error(), s.nowFn()))
			return
		}
	}
	updated, err := s.settleCharge(ctx, tx, chargeOutcome{
		Status:    status.Status,
		GatewayID: status.GatewayID,
		Amount:    status.Amount,
		Currency:  status.Currency,
		Raw:       status.Raw,
		Action:    domain.LogActionReconcile,
	})
	if err != nil {
		result.Errors++
		s.logger.Warn("charge reconciliation failed",
			"operation", "reconcile_charge",
			"outcome", "failure",
			"transaction_id", tx.TransactionID,
			"error", err,
		)
		return
	}
	switch updated.Status {
	case domain.TransactionStatusCompleted:
		result.Funded++
	case domain.TransactionStatusFailed:
		result.Failed++
	}
}

// reconcileTransfer polls a transfer the gateway accepted, resubmits one it never confirmed under the
// same reference, and gives up once the attempts are used.
func (s *Service) reconcileTransfer(ctx context.Context, transactionID string, result *ReconcileResult) error {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !tx.TransferInFlight() {
		return nil
	}
	kind := transferKindOf(tx)

	var updated domain.Transaction
	switch {
	case tx.TransferID != "":
		transfer, err := s.gateway.TransferStatus(ctx, s.transferRequest(tx, "").PaymentMethod, tx.TransferID)
		if err != nil {
			return err
		}
		updated, err = s.applyTransferOutcome(ctx, tx, transferOutcome{
			Status:     transfer.Status,
			TransferID: transfer.TransferID,
			Raw:        transfer.Raw,
			Action:     domain.LogActionReconcile,
		})
		if err != nil {
			return err
		}
	case tx.DisbursementAttempts < s.cfg.MaxDisbursementAttempts:
		beneficiary, err := s.beneficiaryFor(ctx, tx)
		if err != nil {
			return err
		}
		result.Resubmitted++
		updated, err = s.submitTransfer(ctx, tx, beneficiary, "")
		if errors.Is(err, domain.ErrGatewayRejected) {
			result.Reverted++
			return nil
		}
		if err != nil {
			return err
		}
	default:
		updated, err = s.applyTransferOutcome(ctx, tx, transferOutcome{
			Status: ports.GatewayStatusFailed,
			Action: domain.LogActionReconcile,
			Reason: "transfer attempts exhausted",
		})
		if err != nil {
			return err
		}
	}

	switch {
	case updated.TransferInFlight():
	case updated.Status == domain.TransactionStatusPaidToCraftsman,
		updated.Status == domain.TransactionStatusRefunded,
		kind == transferWithdrawal && updated.Status == domain.TransactionStatusCompleted:
		result.Paid++
	default:
		result.Reverted++
	}
	return nil
}
