package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Hour)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Hour, d.ResetAfter)

	other, _ := l.Allow(ctx, "5.6.7.8")
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(30 * time.Minute)
	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Minute, d.ResetAfter)

	now = now.Add(30 * time.Minute)
	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed, "window reset")
	assert.Equal(t, 2, d.Remaining)
}

func TestMemoryLimiterDefaults(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestMemoryLimiterConcurrentCheckAndIncrement(t *testing.T) {
	l := NewMemoryLimiter(10, time.Hour)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(context.Background(), "ip")
			assert.NoError(t, err)
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 10, allowed.Load())
}

func TestMemoryLimiterSweepsStaleWindows(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	for i := 0; i <= maxIdleWindows; i++ {
		l.windows[fmt.Sprintf("stale-%d", i)] = &window{count: 1, resetAt: now.Add(-time.Second)}
	}
	_, err := l.Allow(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, l.windows, 1)
}

func TestRedisLimiterWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 2, time.Hour)
	ctx := context.Background()

	d, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "ip")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.ResetAfter, time.Duration(0))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"ip"))

	mr.FastForward(time.Hour)
	d, _ = l.Allow(ctx, "ip")
	assert.True(t, d.Allowed, "window expired")
}

func TestRedisLimiterRepairsMissingExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultRedisPrefix+"ip", "5"))
	l := NewRedisLimiter(client, 10, time.Minute)

	d, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
	assert.Equal(t, time.Minute, mr.TTL(DefaultRedisPrefix+"ip"))
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()
	l := NewRedisLimiter(client, 1, time.Minute)
	_, err := l.Allow(context.Background(), "ip")
	assert.Error(t, err)
}
