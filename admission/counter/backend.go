// Package counter provides the fixed-window counter stores behind admission
// control: the backend contract, an in-process fallback, and a resilient
// wrapper that fails over between a shared backend and the fallback.
package counter

import (
	"context"
	"time"
)

// Count contains the state of a single window counter after an increment.
// This struct is designed to provide all information needed to make
// admission decisions and populate HTTP headers.
type Count struct {
	// Value is the number of requests observed in the current window,
	// including the increment that produced this count
	Value int64

	// TTL is the remaining time until the window resets
	// Zero means the backend could not report a remaining lifetime
	TTL time.Duration
}

// Backend defines the interface for fixed-window counter stores.
// This interface can be implemented by different backends (Redis, in-memory, etc.)
// and is designed to be framework-agnostic for reuse across services.
//
// Implementations must make Increment atomic under concurrent callers and
// must arm the window expiry only on the increment that creates the counter,
// never on subsequent hits.
type Backend interface {
	// Increment adds one to the counter stored under key, creating it with
	// the given window as expiry when absent, and returns the resulting count.
	// Error is returned only for store failures, never for exhausted quotas.
	Increment(ctx context.Context, key string, window time.Duration) (*Count, error)

	// Reset deletes the counter stored under key.
	// Useful for administrative overrides or testing.
	Reset(ctx context.Context, key string) error
}
