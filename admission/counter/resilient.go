package counter

import (
	"context"
	"sync"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission"
	"github.com/ProveniaLabs/lib-admission/admission/log"
)

// Health represents the observed health of the shared counter backend.
type Health string

const (
	// HealthUp means counts are served from the shared backend.
	HealthUp Health = "UP"

	// HealthDegraded means counts are served from the local fallback while
	// the shared backend recovers.
	HealthDegraded Health = "DEGRADED"
)

// HealthChange represents a health transition of the shared backend.
type HealthChange struct {
	From Health
	To   Health
	When time.Time

	// Err is the failure that caused a degradation, nil on recovery
	Err error
}

// HealthSnapshot is a point-in-time view of the backend health tracking.
type HealthSnapshot struct {
	State       Health
	LastSuccess time.Time
	LastFailure time.Time
}

// config holds resilient backend configuration
type config struct {
	operationTimeout time.Duration
	probeInterval    time.Duration
	onHealthChange   func(HealthChange)
}

// Option configures the resilient backend
type Option func(*config)

// WithOperationTimeout bounds every call against the shared backend.
// A slow backend counts as an unavailable one.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *config) {
		c.operationTimeout = d
	}
}

// WithProbeInterval sets how often the shared backend is re-tried while
// degraded. Between probes all traffic stays on the local fallback.
func WithProbeInterval(d time.Duration) Option {
	return func(c *config) {
		c.probeInterval = d
	}
}

// WithOnHealthChange sets a callback for health transitions
func WithOnHealthChange(fn func(HealthChange)) Option {
	return func(c *config) {
		c.onHealthChange = fn
	}
}

// ResilientBackend serves counts from a shared backend and steps down to a
// local per-replica fallback when the shared backend fails. Callers never see
// backend errors; at worst they get fallback counts.
type ResilientBackend struct {
	remote Backend
	local  Backend
	config *config

	mu          sync.Mutex
	state       Health
	lastSuccess time.Time
	lastFailure time.Time
	lastAttempt time.Time
}

// NewResilientBackend creates a resilient counter backend over remote with
// local as the fallback store.
func NewResilientBackend(remote, local Backend, opts ...Option) *ResilientBackend {
	cfg := &config{
		operationTimeout: 2 * time.Second,
		probeInterval:    30 * time.Second,
		onHealthChange:   func(HealthChange) {},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &ResilientBackend{
		remote: remote,
		local:  local,
		config: cfg,
		state:  HealthUp,
	}
}

// Increment adds one to the counter under key, preferring the shared backend
// and falling back to the local store on failure. While degraded, the shared
// backend is re-tried at most once per probe interval; the probing request
// itself is answered from whichever store succeeded.
func (rb *ResilientBackend) Increment(ctx context.Context, key string, window time.Duration) (*Count, error) {
	logger := admission.NewLoggerFromContext(ctx)

	if rb.acquireRemoteSlot() {
		opCtx, cancel := admission.WithTimeout(ctx, rb.config.operationTimeout)
		count, err := rb.remote.Increment(opCtx, key, window)

		cancel()

		if err == nil {
			rb.recordSuccess(logger)

			return count, nil
		}

		rb.recordFailure(logger, err)
	}

	return rb.local.Increment(ctx, key, window)
}

// Reset deletes the counter under key on both stores. The shared backend is
// only attempted when healthy or due for a probe.
func (rb *ResilientBackend) Reset(ctx context.Context, key string) error {
	logger := admission.NewLoggerFromContext(ctx)

	if rb.acquireRemoteSlot() {
		opCtx, cancel := admission.WithTimeout(ctx, rb.config.operationTimeout)
		err := rb.remote.Reset(opCtx, key)

		cancel()

		if err != nil {
			rb.recordFailure(logger, err)
		} else {
			rb.recordSuccess(logger)
		}
	}

	return rb.local.Reset(ctx, key)
}

// Health returns the current health snapshot.
func (rb *ResilientBackend) Health() HealthSnapshot {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	return HealthSnapshot{
		State:       rb.state,
		LastSuccess: rb.lastSuccess,
		LastFailure: rb.lastFailure,
	}
}

// acquireRemoteSlot reports whether this call may hit the shared backend.
// While healthy every call may. While degraded only one call per probe
// interval may, and that slot is reserved here so concurrent callers do not
// all probe at once.
func (rb *ResilientBackend) acquireRemoteSlot() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.state == HealthUp {
		return true
	}

	now := time.Now()
	if now.Sub(rb.lastAttempt) < rb.config.probeInterval {
		return false
	}

	rb.lastAttempt = now

	return true
}

func (rb *ResilientBackend) recordSuccess(logger log.Logger) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.lastSuccess = time.Now()

	if rb.state == HealthDegraded {
		rb.changeState(HealthUp, nil)
		logger.Infof("Shared counter backend recovered, leaving local fallback ✅ ")
	}
}

func (rb *ResilientBackend) recordFailure(logger log.Logger, err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	now := time.Now()
	rb.lastFailure = now
	rb.lastAttempt = now

	if rb.state == HealthUp {
		rb.changeState(HealthDegraded, err)
		logger.Warnf("Shared counter backend degraded, serving admission from local fallback: %v", err)
	}
}

// changeState changes the health state and notifies observers.
// Callers must hold the mutex.
func (rb *ResilientBackend) changeState(newState Health, err error) {
	if rb.state == newState {
		return
	}

	change := HealthChange{
		From: rb.state,
		To:   newState,
		When: time.Now(),
		Err:  err,
	}

	rb.state = newState

	// Notify observer (in goroutine to avoid blocking)
	go rb.config.onHealthChange(change)
}
