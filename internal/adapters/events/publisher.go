package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/craftsmart/escrow-service/internal/contracts"
)

// EnvelopeHandler consumes canonical envelopes; the application service implements it.
type EnvelopeHandler interface {
	HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error
}

// LoggingPublisher stands in for the broker when none is configured. Event types listed in
// dispatch are handed straight to the in-process handler so async webhooks still settle.
type LoggingPublisher struct {
	logger   *slog.Logger
	handler  EnvelopeHandler
	dispatch map[string]bool
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger, dispatch: map[string]bool{}}
}

// WithLocalDispatch routes the given event types to handler after logging them.
func (p *LoggingPublisher) WithLocalDispatch(handler EnvelopeHandler, eventTypes ...string) *LoggingPublisher {
	p.handler = handler
	for _, eventType := range eventTypes {
		p.dispatch[eventType] = true
	}
	return p
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "published event",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "success",
		"event_type", eventType,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	if p.handler == nil || !p.dispatch[eventType] {
		return nil
	}
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return p.handler.HandleCanonicalEvent(ctx, envelope)
}
