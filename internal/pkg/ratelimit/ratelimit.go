package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loglens/loglens/internal/pkg/cache"
)

// Defaults for trial activation abuse control. Counters are fixed windows
// keyed per client IP.
const (
	DefaultActivationLimit  = 5
	DefaultActivationWindow = 24 * time.Hour
)

// Limiter implements a fixed-window counter on Redis.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter with the shared cache client.
func NewLimiter(prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: cache.GetClient(),
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// NewLimiterWithClient creates a limiter against a specific Redis client.
func NewLimiterWithClient(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// NewActivationLimiter creates the per-IP limiter guarding trial activation.
func NewActivationLimiter() *Limiter {
	return NewLimiter("ratelimit:activation", DefaultActivationLimit, DefaultActivationWindow)
}

// Allow increments the counter for key and reports whether the caller is
// still within the window limit. The window TTL starts with the first hit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

// Remaining returns how many attempts are left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := l.client.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return l.limit, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
