package memory

import (
	"context"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

type OutboxRepository struct{ s *store }

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.enqueueLocked([]ports.OutboxEvent{event})
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.s.outboxOrder {
		row := r.s.outbox[id]
		if row.PublishedAt != nil || row.DeadLetteredAt != nil {
			continue
		}
		if row.ClaimUntil != nil && row.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		row.ClaimToken = &token
		row.ClaimUntil = &until
		r.s.outbox[id] = row
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *ports.OutboxRecord) {
		row.PublishedAt = &at
		row.LastError = nil
		row.ClaimToken = nil
		row.ClaimUntil = nil
	})
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *ports.OutboxRecord) {
		row.RetryCount++
		row.LastError = &errMsg
		row.LastErrorAt = &at
		row.ClaimToken = nil
		row.ClaimUntil = nil
	})
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *ports.OutboxRecord) {
		row.RetryCount++
		row.LastError = &errMsg
		row.LastErrorAt = &at
		row.DeadLetteredAt = &at
		row.ClaimToken = nil
		row.ClaimUntil = nil
	})
}

func (r *OutboxRepository) update(outboxID uuid.UUID, claimToken string, apply func(*ports.OutboxRecord)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.outbox[outboxID.String()]
	if !ok || row.ClaimToken == nil || *row.ClaimToken != claimToken {
		return domain.ErrNotFound
	}
	apply(&row)
	r.s.outbox[outboxID.String()] = row
	return nil
}

// Records returns a snapshot of the outbox in enqueue order.
func (r *OutboxRepository) Records() []ports.OutboxRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(r.s.outboxOrder))
	for _, id := range r.s.outboxOrder {
		out = append(out, r.s.outbox[id])
	}
	return out
}

type IdempotencyRepository struct {
	s     *store
	nowFn func() time.Time
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	if now.After(row.ExpiresAt) {
		delete(r.s.idempotency, key)
		return nil, nil
	}
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.nowFn()
	if row, ok := r.s.idempotency[key]; ok && now.Before(row.ExpiresAt) {
		return domain.ErrConflict
	}
	r.s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "pending",
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.idempotency[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.Status = "completed"
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	row.UpdatedAt = at
	r.s.idempotency[key] = row
	return nil
}

func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if row, ok := r.s.idempotency[key]; ok && row.Status != "completed" {
		delete(r.s.idempotency, key)
	}
	return nil
}

type EventDedupRepository struct{ s *store }

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	expiresAt, ok := r.s.dedup[eventID]
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		delete(r.s.dedup, eventID)
		return false, nil
	}
	return true, nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, _ string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.dedup[eventID] = expiresAt
	return nil
}
