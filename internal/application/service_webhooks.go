package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// ReceiveWebhook authenticates a gateway callback and processes it inline or via the outbox.
func (s *Service) ReceiveWebhook(ctx context.Context, input WebhookInput) (WebhookResult, error) {
	if s.webhookVerifier == nil || s.webhookParser == nil {
		return WebhookResult{}, domain.ErrInvalidSignature
	}
	if err := s.webhookVerifier.Verify(input.Body, input.Signature); err != nil {
		return WebhookResult{}, err
	}
	event, err := s.webhookParser.Parse(input.Body)
	if err != nil {
		return WebhookResult{}, err
	}

	now := s.nowFn()
	result := WebhookResult{EventID: event.EventID}
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, event.EventID, now)
		if err != nil {
			return WebhookResult{}, err
		}
		if dup {
			result.Duplicate = true
			return result, nil
		}
	}

	if s.cfg.AsyncWebhooks {
		outboxEvent, err := s.newEvent(domain.EventGatewayWebhookReceived, input.RequestID, event.EventID, event, now)
		if err != nil {
			return WebhookResult{}, err
		}
		if err := s.outbox.Enqueue(ctx, outboxEvent); err != nil {
			return WebhookResult{}, err
		}
		result.Queued = true
	} else if err := s.ProcessGatewayEvent(ctx, event); err != nil {
		return WebhookResult{}, err
	}

	if s.eventDedup != nil {
		if err := s.eventDedup.MarkProcessed(ctx, event.EventID, "gateway."+event.Kind, now.Add(s.cfg.EventDedupTTL)); err != nil {
			return WebhookResult{}, err
		}
	}
	return result, nil
}

// ProcessGatewayEvent applies a normalized gateway event to the matching transaction.
func (s *Service) ProcessGatewayEvent(ctx context.Context, event ports.GatewayEvent) error {
	switch event.Kind {
	case ports.GatewayEventCharge:
		return s.processChargeEvent(ctx, event)
	case ports.GatewayEventTransfer:
		return s.processTransferEvent(ctx, event)
	default:
		s.logger.Warn("gateway event ignored",
			"operation", "process_gateway_event",
			"outcome", "ignored",
			"event_id", event.EventID,
			"kind", event.Kind,
		)
		return nil
	}
}

func (s *Service) processChargeEvent(ctx context.Context, event ports.GatewayEvent) error {
	tx, err := s.findChargeTransaction(ctx, event.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("webhook for unknown transaction",
			"operation", "process_charge_event",
			"outcome", "ignored",
			"event_id", event.EventID,
			"reference", event.Reference,
		)
		return nil
	}
	if err != nil {
		return err
	}

	now := s.nowFn()
	s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.LogActionWebhook, domain.LogStatusProcessing, nil, event.Raw, "", now))

	outcome := chargeOutcome{
		Status:     event.Status,
		GatewayID:  event.GatewayID,
		Amount:     event.Amount,
		Currency:   event.Currency,
		Raw:        event.Raw,
		Action:     domain.LogActionWebhook,
		TraceID:    event.EventID,
		ViaWebhook: true,
	}
	if event.Status == ports.GatewayStatusSuccessful && s.cfg.VerifyWebhooks && tx.Status == domain.TransactionStatusPending {
		verified, err := s.gateway.VerifyCharge(ctx, tx.PaymentMethod, tx.PaymentReference)
		if err != nil {
			s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.LogActionVerify, domain.LogStatusError, nil, nil, err.Error(), now))
			return fmt.Errorf("verify webhook charge: %w", err)
		}
		outcome.Status = verified.Status
		outcome.Amount = verified.Amount
		outcome.Currency = verified.Currency
		if verified.GatewayID != "" {
			outcome.GatewayID = verified.GatewayID
		}
	}

	_, err = s.settleCharge(ctx, tx, outcome)
	return err
}

func (s *Service) findChargeTransaction(ctx context.Context, reference string) (domain.Transaction, error) {
	if reference == "" {
		return domain.Transaction{}, domain.ErrNotFound
	}
	tx, err := s.transactions.GetByID(ctx, reference)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Transaction{}, err
	}
	return s.transactions.GetByPaymentReference(ctx, reference)
}

func (s *Service) processTransferEvent(ctx context.Context, event ports.GatewayEvent) error {
	tx, err := s.transactions.GetByDisbursementReference(ctx, event.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("transfer webhook for unknown reference",
			"operation", "process_transfer_event",
			"outcome", "ignored",
			"event_id", event.EventID,
			"reference", event.Reference,
		)
		return nil
	}
	if err != nil {
		return err
	}

	s.appendLog(ctx, newPaymentLog(tx.TransactionID, domain.LogActionWebhook, domain.LogStatusProcessing, nil, event.Raw, "", s.nowFn()))
	return s.withLock(ctx, transferLockKey(tx), func() error {
		// Re-read under the lock; a release call may have moved the row.
		current, err := s.transactions.GetByID(ctx, tx.TransactionID)
		if err != nil {
			return err
		}
		_, err = s.applyTransferOutcome(ctx, current, transferOutcome{
			Status:     event.Status,
			TransferID: event.GatewayID,
			Raw:        event.Raw,
			Action:     domain.LogActionWebhook,
			TraceID:    event.EventID,
		})
		return err
	})
}
