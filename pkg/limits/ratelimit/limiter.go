package ratelimit

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/limits/storage"
)

// Limiter enforces fixed-window rate limits over a counter store. Each
// (client, endpoint) pair gets its own window, anchored at the pair's first
// request; the counter resets when the window elapses.
type Limiter struct {
	store storage.CounterStore
}

// Decision is the outcome of a limit check, carrying everything the transport
// layer needs for X-RateLimit-* and Retry-After headers.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64

	// Reset is when the current window ends and the counter starts over.
	Reset time.Time

	// RetryAfter is how long a denied client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// NewLimiter creates a limiter backed by store.
func NewLimiter(store storage.CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Allow counts a request from clientKey against endpoint under rule and
// reports whether it is within the limit. The count-and-compare is atomic in
// the store, so concurrent requests never overshoot the limit.
func (l *Limiter) Allow(ctx context.Context, clientKey, endpoint string, rule Rule) (Decision, error) {
	count, windowStart, err := l.store.Increment(ctx, clientKey+"|"+endpoint, rule.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit for %s: %w", endpoint, err)
	}

	reset := windowStart.Add(rule.Window)
	decision := Decision{
		Allowed: count <= rule.Limit,
		Limit:   rule.Limit,
		Reset:   reset,
	}

	if decision.Allowed {
		decision.Remaining = rule.Limit - count
	} else {
		retry := time.Until(reset)
		if retry < 0 {
			retry = 0
		}
		decision.RetryAfter = retry
	}

	return decision, nil
}

// Cleanup removes counters idle for longer than maxIdle and returns how many
// were dropped. Meant to run periodically so abandoned (client, endpoint)
// pairs do not accumulate.
func (l *Limiter) Cleanup(ctx context.Context, maxIdle time.Duration) (int, error) {
	return l.store.Cleanup(ctx, time.Now().Add(-maxIdle))
}

// Close releases the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}
