package counter

import (
	"context"
	"errors"
	"time"

	cache "github.com/patrickmn/go-cache"
)

const localCleanupInterval = 5 * time.Minute

// LocalBackend is an in-process counter store used as the fallback when the
// shared backend is unreachable. Counts live per replica, so decisions taken
// on it see only the local slice of traffic.
type LocalBackend struct {
	cache *cache.Cache
}

// NewLocalBackend creates a local counter store. Expired windows are treated
// as absent on access and swept in the background.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		cache: cache.New(cache.NoExpiration, localCleanupInterval),
	}
}

// Increment adds one to the window counter under key. The window expiry is
// armed only when the counter is created, so later hits never extend it.
func (b *LocalBackend) Increment(_ context.Context, key string, window time.Duration) (*Count, error) {
	// Add is a no-op while a live counter exists and replaces counters whose
	// window elapsed. The retry covers a window expiring between the two
	// cache calls.
	for attempt := 0; attempt < 3; attempt++ {
		_ = b.cache.Add(key, int64(0), window)

		value, err := b.cache.IncrementInt64(key, 1)
		if err != nil {
			continue
		}

		ttl := window
		if _, expiration, found := b.cache.GetWithExpiration(key); found && !expiration.IsZero() {
			ttl = time.Until(expiration)
		}

		return &Count{Value: value, TTL: ttl}, nil
	}

	return nil, errors.New("local counter expired during increment")
}

// Reset deletes the counter under key.
func (b *LocalBackend) Reset(_ context.Context, key string) error {
	b.cache.Delete(key)

	return nil
}
