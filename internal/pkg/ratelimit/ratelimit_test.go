package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiterWithClient(client, "ratelimit:test", limit, window), mr
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Hour)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterRemaining(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5, time.Hour)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestLimiterReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Hour)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
