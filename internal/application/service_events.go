package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

const eventSchemaVersion = "v1"

// newEvent wraps data in the canonical envelope ready for the outbox.
func (s *Service) newEvent(eventType, traceID, partitionKey string, data any, now time.Time) (ports.OutboxEvent, error) {
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return ports.OutboxEvent{}, domain.ErrUnsupportedEventType
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ports.OutboxEvent{}, fmt.Errorf("%w: marshal %s payload", domain.ErrInvalidInput, eventType)
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	eventID := uuid.New()
	env := contracts.EventEnvelope{
		EventID:          eventID.String(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    eventSchemaVersion,
		Data:             b,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return ports.OutboxEvent{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return ports.OutboxEvent{
		EventID:      eventID,
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   now,
	}, nil
}

func (s *Service) escrowEvent(eventType, traceID string, tx domain.Transaction, reason string, now time.Time) (ports.OutboxEvent, error) {
	return s.newEvent(eventType, traceID, tx.JobID, contracts.EscrowTransactionPayload{
		JobID:                 tx.JobID,
		TransactionID:         tx.TransactionID,
		Status:                string(tx.Status),
		TotalAmount:           tx.TotalAmount,
		CommissionAmount:      tx.CommissionAmount,
		DisbursementAmount:    tx.DisbursementAmount,
		Currency:              tx.Currency,
		Provider:              tx.Provider,
		PaymentReference:      tx.PaymentReference,
		DisbursementReference: tx.DisbursementReference,
		ConfirmedBy:           tx.ConfirmedBy,
		Reason:                reason,
		OccurredAt:            now.Format(time.RFC3339),
	}, now)
}

// HandleCanonicalEvent processes an envelope consumed from the broker.
func (s *Service) HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	now := s.nowFn()
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, now)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}

	switch envelope.EventType {
	case domain.EventGatewayWebhookReceived:
		var event ports.GatewayEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return fmt.Errorf("%w: webhook event payload", domain.ErrInvalidInput)
		}
		if err := s.ProcessGatewayEvent(ctx, event); err != nil {
			return err
		}
	default:
		return domain.ErrUnsupportedEventType
	}

	if s.eventDedup != nil {
		return s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(s.cfg.EventDedupTTL))
	}
	return nil
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" {
		return domain.ErrInvalidInput
	}
	if event.SchemaVersion != "" && event.SchemaVersion != eventSchemaVersion {
		return fmt.Errorf("%w: schema version %q", domain.ErrInvalidInput, event.SchemaVersion)
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}
