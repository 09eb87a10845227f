package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "coursegen:ratelimit:"

// RedisLimiter shares fixed-window counters between instances. INCR is
// atomic; the first increment of a window sets its expiry.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, win time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &RedisLimiter{client: client, prefix: DefaultRedisPrefix, limit: limit, window: win}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rk := l.prefix + key

	count, err := l.client.Incr(ctx, rk).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	ttl, err := l.client.PTTL(ctx, rk).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit ttl: %w", err)
	}
	// a negative ttl means the window has no expiry yet
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, rk, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = l.window
	}

	d := Decision{Limit: l.limit, ResetAfter: ttl}
	if count > int64(l.limit) {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = l.limit - int(count)
	return d, nil
}
