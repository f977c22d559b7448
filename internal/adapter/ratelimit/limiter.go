package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config configures write throttling. A zero Limit disables it.
type Config struct {
	Limit  int
	Window time.Duration
}

// RedisLimiter is a fixed window counter per key
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a limiter allowing cfg.Limit hits per key and window
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, limit: cfg.Limit, window: window, now: time.Now}
}

// Allow counts a hit for key and reports whether it is within the limit
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := windowKey(key, l.now(), l.window)

	pipeline := l.client.TxPipeline()
	incr := pipeline.Incr(ctx, redisKey)
	pipeline.Expire(ctx, redisKey, l.window)
	if _, err := pipeline.Exec(ctx); err != nil {
		return true, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

// Window is how long a client waits once limited
func (l *RedisLimiter) Window() time.Duration {
	return l.window
}

// windowKey buckets hits by window so the counter resets on its own
func windowKey(key string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ledger:ratelimit:%s:%d", key, now.UnixNano()/int64(window))
}
