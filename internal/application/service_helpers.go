package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ValidateToken verifies a bearer token and returns its claims.
func (s *Service) ValidateToken(_ context.Context, raw string) (ports.AuthClaims, error) {
	if s.tokenVerifier == nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	claims, err := s.tokenVerifier.ParseAndValidate(raw)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if strings.TrimSpace(claims.SubjectID) == "" || !domain.IsKnownRole(claims.Role) {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireRole(actor Actor, roles ...string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return domain.ErrForbidden
}

func requireIdempotencyKey(actor Actor) error {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ErrIdempotencyRequired
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// replayIdempotent returns the stored response for key when the same request already completed.
func replayIdempotent[T any](ctx context.Context, s *Service, key, requestHash string) (T, bool, error) {
	var out T
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return out, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return out, false, err
	}
	if rec.RequestHash != requestHash {
		return out, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return out, false, domain.ErrOperationInProgress
	}
	if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
		return out, false, nil
	}
	return out, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return
	}
	b, _ := json.Marshal(payload)
	if err := s.idempotency.Complete(ctx, key, code, b, s.nowFn()); err != nil {
		s.logger.Warn("idempotency completion failed",
			"operation", "complete_idempotency",
			"outcome", "failure",
			"error", err,
		)
	}
}

func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("idempotency release failed",
			"operation", "release_idempotency",
			"outcome", "failure",
			"error", err,
		)
	}
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// withLock runs fn while holding the named lock.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	if s.locks == nil {
		return fn()
	}
	lock, err := s.locks.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("lock release failed",
				"operation", "release_lock",
				"outcome", "failure",
				"lock_key", key,
				"error", err,
			)
		}
	}()
	return fn()
}

func jobLockKey(jobID string) string {
	return "escrow:job:" + jobID
}

const feesLockKey = "escrow:fees"

func newPaymentLog(transactionID, action, status string, request, response any, errMsg string, at time.Time) domain.PaymentLog {
	return domain.PaymentLog{
		LogID:         uuid.NewString(),
		TransactionID: transactionID,
		Action:        action,
		Status:        status,
		RequestData:   rawJSON(request),
		ResponseData:  rawJSON(response),
		ErrorMessage:  errMsg,
		CreatedAt:     at,
	}
}

func rawJSON(v any) json.RawMessage {
	switch t := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return t
	case []byte:
		if json.Valid(t) {
			return t
		}
		b, _ := json.Marshal(string(t))
		return b
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	}
}

// appendLog writes an audit row outside of a transition; failures are logged, not returned.
func (s *Service) appendLog(ctx context.Context, entry domain.PaymentLog) {
	if s.paymentLogs == nil {
		return
	}
	if err := s.paymentLogs.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("payment log append failed",
			"operation", "append_payment_log",
			"outcome", "failure",
			"transaction_id", entry.TransactionID,
			"action", entry.Action,
			"error", err,
		)
	}
}

var amountPrinter = message.NewPrinter(language.English)

func (s *Service) formatAmount(amount int64) string {
	return amountPrinter.Sprintf("%s %d", s.cfg.Currency, amount)
}

func isGatewayUnavailable(err error) bool {
	return errors.Is(err, domain.ErrGatewayUnavailable)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
