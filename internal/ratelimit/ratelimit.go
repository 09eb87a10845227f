// Package ratelimit caps generation requests per caller in fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Hour
)

// ErrRateLimitExceeded is the caller-facing error; it is unrelated to a
// provider's own rate limiting.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter counts one request for key and reports whether it may proceed.
// Check and increment happen atomically.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// sweep threshold for dropping stale windows
const maxIdleWindows = 10000

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  win,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.windows) > maxIdleWindows {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	d := Decision{Limit: l.limit, ResetAfter: w.resetAt.Sub(now)}
	if w.count >= l.limit {
		return d, nil
	}
	w.count++
	d.Allowed = true
	d.Remaining = l.limit - w.count
	return d, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
