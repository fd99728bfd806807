// internal/scoring/guard/guard_test.go
package guard

import (
	"context"
	"testing"
	"time"

	"talent-scoring/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redisLease struct {
	client *redis.Client
}

func (r *redisLease) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, expiration).Result()
}

func (r *redisLease) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func newTestGuard(t *testing.T, ttl time.Duration) (*SubmissionGuard, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(&redisLease{client: client}, ttl, logger.NewNoOpLogger()), srv
}

func TestSubmissionGuard_AcquireOnce(t *testing.T) {
	g, _ := newTestGuard(t, time.Minute)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmissionGuard_PerTalentLeases(t *testing.T) {
	g, _ := newTestGuard(t, time.Minute)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Acquire(ctx, "talent-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmissionGuard_ReleaseFreesLease(t *testing.T) {
	g, _ := newTestGuard(t, time.Minute)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	require.True(t, ok)

	g.Release(ctx, "talent-1")

	ok, err = g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmissionGuard_LeaseExpires(t *testing.T) {
	g, srv := newTestGuard(t, time.Minute)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Minute)

	ok, err = g.Acquire(ctx, "talent-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
