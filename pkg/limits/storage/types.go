package storage

import (
	"context"
	"time"
)

// CounterStore is the pluggable capability backing the rate limiter. The
// default in-process store can be swapped for a shared external one (SQLite,
// Redis) without changing any call site; cross-instance consistency is
// whatever the chosen store provides.
//
// Implementations must be safe for concurrent use and must make the
// read-increment-reset sequence atomic per key: two simultaneous increments
// of the same key may never observe the same count.
type CounterStore interface {
	// Increment adds one to the fixed-window counter for key. When the
	// window that started at the stored window start has elapsed, the
	// counter resets to one and a new window begins at now. It returns
	// the count after incrementing and the start of the current window.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)

	// Cleanup removes counters not touched since before cutoff. Returns
	// the number of entries removed.
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases resources held by the store.
	Close() error
}
