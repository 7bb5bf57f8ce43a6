package redis

import (
	"context"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission/counter"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// incrementScript atomically increments a window counter, arms the expiry
// only on the increment that created the key, and reports the remaining
// window lifetime in milliseconds. Running it as a script keeps the
// increment-and-arm pair atomic across replicas sharing the store.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// CounterBackend implements distributed fixed-window counting on Redis.
// The client parameter accepts redis.UniversalClient which supports:
// - Standalone Redis
// - Redis Sentinel (high availability)
// - Redis Cluster (horizontal scaling)
type CounterBackend struct {
	client redis.UniversalClient
}

// NewCounterBackend creates a Redis-backed counter store.
func NewCounterBackend(client redis.UniversalClient) *CounterBackend {
	return &CounterBackend{
		client: client,
	}
}

// Increment adds one to the counter under key. The first increment of a
// window arms its expiry; later increments never extend it, so the window
// end stays fixed from the first request that opened it.
func (cb *CounterBackend) Increment(ctx context.Context, key string, window time.Duration) (*counter.Count, error) {
	reply, err := incrementScript.Run(ctx, cb.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis increment failed")
	}

	values, ok := reply.([]any)
	if !ok || len(values) != 2 {
		return nil, errors.Errorf("unexpected redis increment reply: %v", reply)
	}

	value, ok := values[0].(int64)
	if !ok {
		return nil, errors.Errorf("unexpected redis counter value: %v", values[0])
	}

	var ttl time.Duration

	if ttlMillis, ok := values[1].(int64); ok && ttlMillis > 0 {
		ttl = time.Duration(ttlMillis) * time.Millisecond
	}

	return &counter.Count{Value: value, TTL: ttl}, nil
}

// Reset deletes the counter under key.
func (cb *CounterBackend) Reset(ctx context.Context, key string) error {
	if err := cb.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "redis reset failed")
	}

	return nil
}
