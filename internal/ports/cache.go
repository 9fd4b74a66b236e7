package ports

import (
	"context"
	"time"
)

type Lock interface {
	Release(ctx context.Context) error
}

// LockManager hands out short-lived exclusive locks. Acquire returns domain.ErrOperationInProgress when the key is held.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// TokenCache stores gateway access tokens shared between processes.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}
