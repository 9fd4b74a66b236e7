package memory

import (
	"context"
	"sync"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

// LockManager is the single-process stand-in for the redis lock manager.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]heldLock
	nowFn func() time.Time
}

type heldLock struct {
	token     string
	expiresAt time.Time
}

func NewLockManager() *LockManager {
	return &LockManager{held: map[string]heldLock{}, nowFn: time.Now}
}

func (m *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (ports.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()
	if current, ok := m.held[key]; ok && now.Before(current.expiresAt) {
		return nil, domain.ErrOperationInProgress
	}
	token := uuid.NewString()
	m.held[key] = heldLock{token: token, expiresAt: now.Add(ttl)}
	return &memoryLock{manager: m, key: key, token: token}, nil
}

type memoryLock struct {
	manager *LockManager
	key     string
	token   string
}

func (l *memoryLock) Release(_ context.Context) error {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	if current, ok := l.manager.held[l.key]; ok && current.token == l.token {
		delete(l.manager.held, l.key)
	}
	return nil
}

// TokenCache keeps gateway tokens in process memory.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]heldLock
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: map[string]heldLock{}}
}

func (c *TokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.tokens[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.token, true, nil
}

func (c *TokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = heldLock{token: token, expiresAt: time.Now().Add(ttl)}
	return nil
}
