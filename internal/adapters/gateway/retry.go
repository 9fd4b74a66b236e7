package gateway

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
)

// RetryPolicy retries calls that failed with domain.ErrGatewayUnavailable using
// exponential backoff with full jitter.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(p.Backoff(attempt)):
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrGatewayUnavailable) {
			return err
		}
	}
	return err
}

// Backoff returns a random delay in [0, min(MaxDelay, BaseDelay*2^(attempt-1))].
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	ceiling := base
	for i := 1; i < attempt && (p.MaxDelay <= 0 || ceiling < p.MaxDelay); i++ {
		ceiling *= 2
	}
	if p.MaxDelay > 0 && ceiling > p.MaxDelay {
		ceiling = p.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}
