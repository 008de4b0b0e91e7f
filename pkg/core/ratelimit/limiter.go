// Package ratelimit implements the per-client fixed-window request counter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultLimit  = 60
	DefaultWindow = 60 * time.Second
)

// Limiter decides whether one more request from key fits in the current window.
// Check and increment happen as one step.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process. A window resets lazily on the
// first request after it expires.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	records map[string]*window
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		records: make(map[string]*window),
	}
}

// WithClock replaces the time source; used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || now.After(rec.resetAt) {
		l.records[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	if rec.count >= l.limit {
		return false, nil
	}
	rec.count++
	return true, nil
}

// Sweep drops expired windows so idle clients do not accumulate.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}
