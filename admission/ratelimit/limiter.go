package ratelimit

import (
	"context"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission"
	"github.com/ProveniaLabs/lib-admission/admission/counter"
	"github.com/ProveniaLabs/lib-admission/admission/log"
	"github.com/ProveniaLabs/lib-admission/admission/opentelemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Limiter charges requests against every window of an identity's policy and
// produces the admission verdict.
type Limiter struct {
	backend       counter.Backend
	source        Source
	defaultPolicy *Policy
	metrics       *MetricsExporter
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithDefaultPolicy overrides the policy applied when no source entry exists
// for an identity.
func WithDefaultPolicy(policy *Policy) Option {
	return func(l *Limiter) {
		l.defaultPolicy = policy
	}
}

// WithMetrics attaches a Prometheus exporter to the limiter.
func WithMetrics(metrics *MetricsExporter) Option {
	return func(l *Limiter) {
		l.metrics = metrics
	}
}

// NewLimiter creates a limiter over the given counter backend and policy
// source. A nil source means every identity gets the default policy.
func NewLimiter(backend counter.Backend, source Source, opts ...Option) *Limiter {
	limiter := &Limiter{
		backend:       backend,
		source:        source,
		defaultPolicy: DefaultPolicy(),
		metrics:       NopMetricsExporter(),
	}

	for _, opt := range opts {
		opt(limiter)
	}

	return limiter
}

// Check charges one request to the identity and decides admission.
//
// Windows are evaluated from smallest to largest and each evaluated window is
// incremented before its limit is compared, so denied requests still consume
// quota in the windows that admitted them. Evaluation stops at the first
// window over its limit; larger windows are left untouched. A request is
// admitted while the count stays at or under the window maximum.
//
// An error is returned only when a counter increment fails; the caller
// decides whether that fails open or closed.
func (l *Limiter) Check(ctx context.Context, identity Identity) (*Verdict, error) {
	logger := admission.NewLoggerFromContext(ctx)
	tracer := admission.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "ratelimit.check")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.identity_namespace", identity.Namespace))

	start := time.Now()
	policy := l.resolvePolicy(ctx, identity, logger)

	var (
		tightest     Window
		tightestLeft int64 = -1
		tightestTTL  time.Duration
	)

	for _, w := range policy.Windows {
		key := WindowKey{Namespace: identity.Namespace, ID: identity.ID, Label: w.Label}

		count, err := l.backend.Increment(ctx, key.String(), w.Duration)
		if err != nil {
			opentelemetry.HandleSpanError(&span, "Failed to increment admission counter", err)

			return nil, errors.Wrap(err, "admission counter increment failed")
		}

		if count.Value > int64(w.MaxRequests) {
			verdict := l.deny(identity, w, count, logger)
			l.metrics.RecordDecision(identity.Namespace, false, time.Since(start))

			return verdict, nil
		}

		if left := int64(w.MaxRequests) - count.Value; tightestLeft < 0 || left < tightestLeft {
			tightest = w
			tightestLeft = left
			tightestTTL = count.TTL
		}
	}

	resetAfter := tightestTTL
	if resetAfter <= 0 {
		resetAfter = tightest.Duration
	}

	l.metrics.RecordDecision(identity.Namespace, true, time.Since(start))

	return &Verdict{
		Allowed:        true,
		Limit:          tightest.MaxRequests,
		Remaining:      int(tightestLeft),
		ResetAt:        time.Now().Add(resetAfter),
		LimitingWindow: tightest.Duration,
		WindowLabel:    tightest.Label,
	}, nil
}

// Reset clears the identity's counters in every window of its policy.
func (l *Limiter) Reset(ctx context.Context, identity Identity) error {
	logger := admission.NewLoggerFromContext(ctx)
	policy := l.resolvePolicy(ctx, identity, logger)

	for _, w := range policy.Windows {
		key := WindowKey{Namespace: identity.Namespace, ID: identity.ID, Label: w.Label}

		if err := l.backend.Reset(ctx, key.String()); err != nil {
			return errors.Wrap(err, "admission counter reset failed")
		}
	}

	return nil
}

// deny builds the verdict for a request stopped by window w.
func (l *Limiter) deny(identity Identity, w Window, count *counter.Count, logger log.Logger) *Verdict {
	retryAfter := count.TTL
	if retryAfter <= 0 {
		retryAfter = w.Duration
	}

	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	l.metrics.RecordRejection(identity.Namespace, windowName(w))

	logger.Debugf("Admission denied for %s by %s window: %d/%d", identity.String(), windowName(w), count.Value, w.MaxRequests)

	return &Verdict{
		Allowed:        false,
		Limit:          w.MaxRequests,
		Remaining:      0,
		RetryAfter:     retryAfter,
		ResetAt:        time.Now().Add(retryAfter),
		LimitingWindow: w.Duration,
		WindowLabel:    w.Label,
	}
}

// resolvePolicy finds the identity's policy, falling back to the default
// policy when the source has no entry or fails. The fallback is never
// unlimited.
func (l *Limiter) resolvePolicy(ctx context.Context, identity Identity, logger log.Logger) *Policy {
	if l.source == nil {
		return l.defaultPolicy
	}

	policy, err := l.source.PolicyFor(ctx, identity)
	if err == nil && policy != nil {
		return policy
	}

	if err != nil && !errors.Is(err, ErrPolicyNotFound) {
		logger.Warnf("Policy source failed for %s, using default policy: %v", identity.String(), err)
	} else {
		logger.Debugf("No admission policy for %s, using default policy", identity.String())
	}

	l.metrics.RecordDefaultPolicy()

	return l.defaultPolicy
}

// windowName labels a window for metrics and logs, deriving a canonical name
// for unlabeled windows.
func windowName(w Window) string {
	if w.Label != "" {
		return w.Label
	}

	return CanonicalLabel(w.Duration)
}
