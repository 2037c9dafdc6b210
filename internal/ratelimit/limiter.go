// Package ratelimit implements fixed-window request counting. Windows are
// aligned to wall-clock boundaries of the window length, so every client's
// counter resets at the same instant.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Store increments the counter for key within the window that ends at
// windowEnd, creating it at 1 when absent.
type Store interface {
	Incr(ctx context.Context, key string, windowEnd time.Time) (int64, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter allows at most Limit requests per key per window.
type Limiter struct {
	store  Store
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

// New returns a limiter. scope namespaces keys so several limiters can share a store.
func New(store Store, scope string, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, scope: scope, limit: limit, window: window, now: time.Now}
}

// Scope names the limiter in keys, logs and metrics.
func (l *Limiter) Scope() string { return l.scope }

// Allow counts one request for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.window)
	end := start.Add(l.window)

	storeKey := l.scope + ":" + key + ":" + strconv.FormatInt(start.Unix(), 10)
	count, err := l.store.Incr(ctx, storeKey, end)
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: end}, fmt.Errorf("rate limit incr: %w", err)
	}

	d := Decision{
		Allowed: count <= int64(l.limit),
		Limit:   l.limit,
		ResetAt: end,
	}
	if remaining := int64(l.limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		d.RetryAfter = end.Sub(now)
	}
	return d, nil
}
