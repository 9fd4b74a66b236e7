package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Message struct {
	Topic   string
	Key     string
	Payload []byte
	raw     kafka.Message
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// ConsumerWorker feeds broker messages to the application. Transient failures are retried a few
// times in place; anything else is logged and committed since handlers dedup on event id.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  EnvelopeHandler
	interval time.Duration
	attempts int
	backoff  time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler EnvelopeHandler, interval time.Duration) *ConsumerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger:   logger,
		consumer: consumer,
		handler:  handler,
		interval: interval,
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil && len(msgs) == 0 {
		return err
	}
	for _, msg := range msgs {
		w.handle(ctx, msg)
	}
	if commitErr := w.consumer.Commit(ctx, msgs...); commitErr != nil {
		return commitErr
	}
	return err
}

func (w *ConsumerWorker) handle(ctx context.Context, msg Message) {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		w.logger.WarnContext(ctx, "dropping undecodable message",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "decode_envelope",
			"outcome", "failure",
			"topic", msg.Topic,
			"error", err,
		)
		return
	}

	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		err = w.handler.HandleCanonicalEvent(ctx, envelope)
		if err == nil || !retryable(err) || attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		w.logger.WarnContext(ctx, "event handling failed",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "handle_event",
			"outcome", "failure",
			"topic", msg.Topic,
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
			"error", err,
		)
		return
	}
	w.logger.DebugContext(ctx, "event handled",
		"module", "events.consumer_worker",
		"layer", "adapter",
		"operation", "handle_event",
		"outcome", "success",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
	)
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrOperationInProgress) ||
		errors.Is(err, domain.ErrConcurrentUpdate) ||
		errors.Is(err, domain.ErrGatewayUnavailable)
}
