//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/craftsmart/escrow-service/internal/adapters/cache"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	port := nat.Port("6379/tcp")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{string(port)},
			WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	client, err := cache.Connect(ctx, fmt.Sprintf("redis://%s:%s/0", host, mapped.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLockManagerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}
	ctx := context.Background()
	client := startRedis(t, ctx)
	locks := cache.NewRedisLockManager(client)

	first, err := locks.Acquire(ctx, "escrow:job:1", time.Minute)
	require.NoError(t, err)

	_, err = locks.Acquire(ctx, "escrow:job:1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrOperationInProgress)

	other, err := locks.Acquire(ctx, "escrow:job:2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	again, err := locks.Acquire(ctx, "escrow:job:1", time.Minute)
	require.NoError(t, err)

	// A stale holder must not release a lock it no longer owns.
	require.NoError(t, first.Release(ctx))
	_, err = locks.Acquire(ctx, "escrow:job:1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrOperationInProgress)
	require.NoError(t, again.Release(ctx))
}

func TestRedisTokenCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}
	ctx := context.Background()
	client := startRedis(t, ctx)
	tokens := cache.NewRedisTokenCache(client)

	_, ok, err := tokens.Get(ctx, "mtn:collection")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tokens.Set(ctx, "mtn:collection", "abc", time.Minute))
	token, ok, err := tokens.Get(ctx, "mtn:collection")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
