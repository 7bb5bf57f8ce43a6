package http

import (
	"slices"
	"strconv"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission"
	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
	"github.com/ProveniaLabs/lib-admission/admission/log"
	"github.com/ProveniaLabs/lib-admission/admission/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// AdmissionConfig configures the admission control middleware for Fiber.
type AdmissionConfig struct {
	// Limiter performs the admission check (usually Redis-backed with a
	// local fallback)
	Limiter *ratelimit.Limiter

	// Resolver extracts the admission identity from the request.
	// Defaults to DefaultResolver: bearer tokens first, client address
	// otherwise.
	Resolver Resolver

	// SkipPaths defines paths that bypass admission control.
	// Defaults to health, version and metrics endpoints.
	SkipPaths []string

	// FailureMode determines behavior when the counter backend fails.
	// FailOpen admits requests (prioritize availability), FailClosed
	// blocks them with 503 (prioritize protection).
	FailureMode ratelimit.FailureMode

	// ErrorCode is returned when the rate limit is exceeded
	ErrorCode string

	// ErrorMessage is the human-readable error message
	ErrorMessage string

	// DisableHeaders suppresses the X-RateLimit-* response headers
	DisableHeaders bool

	// Logger overrides the request-scoped logger. When nil the logger
	// travels in from the logging middleware through the request context.
	Logger log.Logger

	// OnRateLimitExceeded is an optional callback when a request is denied.
	// Useful for metrics, alerts, or custom actions.
	OnRateLimitExceeded func(c *fiber.Ctx, identity ratelimit.Identity, verdict *ratelimit.Verdict)

	// OnError is an optional callback when the admission check fails.
	OnError func(c *fiber.Ctx, err error)
}

// AdmissionMiddleware creates a Fiber middleware enforcing admission control.
// The middleware:
// 1. Resolves the request identity (via Resolver)
// 2. Charges the request against every window of the identity's policy
// 3. Sets standard rate limit response headers
// 4. Denies with 429 once a window is over its limit
// 5. Handles counter failures according to FailureMode, never with an
// unhandled error
func AdmissionMiddleware(config AdmissionConfig) fiber.Handler {
	applyAdmissionDefaults(&config)

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if shouldSkipPath(c.Path(), config.SkipPaths) {
			return c.Next()
		}

		identity := config.Resolver.Resolve(c)
		if identity.ID == "" {
			// An unresolvable identity skips admission instead of
			// sharing one global bucket.
			return c.Next()
		}

		verdict, err := config.Limiter.Check(ctx, identity)
		if err != nil {
			return handleAdmissionError(c, config, err, identity)
		}

		if !config.DisableHeaders {
			setRateLimitHeaders(c, verdict)
		}

		if !verdict.Allowed {
			return handleAdmissionExceeded(c, config, identity, verdict)
		}

		return c.Next()
	}
}

// applyAdmissionDefaults sets default values for the admission configuration.
func applyAdmissionDefaults(config *AdmissionConfig) {
	if config.Resolver == nil {
		config.Resolver = DefaultResolver{}
	}

	if config.FailureMode == "" {
		config.FailureMode = ratelimit.FailOpen
	}

	if config.ErrorCode == "" {
		config.ErrorCode = constant.ErrRateLimitExceeded.Error()
	}

	if config.ErrorMessage == "" {
		config.ErrorMessage = "Too many requests. Please try again later."
	}

	if config.SkipPaths == nil {
		config.SkipPaths = []string{"/health", "/version", "/metrics"}
	}
}

// handleAdmissionError handles counter backend failures.
// Behavior depends on the configured FailureMode:
// - FailOpen: Allow request but log error
// - FailClosed: Block request with 503 Service Unavailable
func handleAdmissionError(c *fiber.Ctx, config AdmissionConfig, err error, identity ratelimit.Identity) error {
	logger := admissionLogger(c, config)

	logger.Errorf("Admission check error: %v (identity: %s, mode: %s)", err, identity.String(), config.FailureMode)

	if config.OnError != nil {
		config.OnError(c, err)
	}

	if config.FailureMode == ratelimit.FailOpen {
		logger.Warnf("Admission failed open, allowing request")

		return c.Next()
	}

	logger.Warnf("Admission failed closed, blocking request")

	return ServiceUnavailable(c,
		constant.ErrBackendUnavailable.Error(),
		"Counter Backend Unavailable",
		"Service temporarily unavailable. Please try again later.",
	)
}

// handleAdmissionExceeded handles denied requests.
// Returns 429 Too Many Requests with Retry-After header (RFC 6585).
func handleAdmissionExceeded(c *fiber.Ctx, config AdmissionConfig, identity ratelimit.Identity, verdict *ratelimit.Verdict) error {
	logger := admissionLogger(c, config)

	logger.Warnf("Rate limit exceeded for %s (limit: %d, window: %s)",
		identity.String(), verdict.Limit, windowHint(verdict))

	if config.OnRateLimitExceeded != nil {
		config.OnRateLimitExceeded(c, identity, verdict)
	}

	retryAfterSeconds := max(int((verdict.RetryAfter+time.Second-1)/time.Second), 1)

	c.Set(constant.RetryAfter, strconv.Itoa(retryAfterSeconds))
	c.Set(constant.RateLimitWindow, windowHint(verdict))

	body := admission.ValidateRateLimitError(nil, identity.Namespace)
	body.Code = config.ErrorCode
	body.Message = config.ErrorMessage
	body.RetryAfter = retryAfterSeconds
	body.Window = windowHint(verdict)

	return TooManyRequests(c, *body)
}

// setRateLimitHeaders sets standard rate limit headers on the response.
// These headers help clients implement proper backoff and retry logic:
// - X-RateLimit-Limit: Maximum requests allowed in the reported window
// - X-RateLimit-Remaining: Requests remaining in the reported window
// - X-RateLimit-Reset: Unix timestamp when the reported window resets
// - X-RateLimit-Window: Name of the reported window
func setRateLimitHeaders(c *fiber.Ctx, verdict *ratelimit.Verdict) {
	c.Set(constant.RateLimitLimit, strconv.Itoa(verdict.Limit))
	c.Set(constant.RateLimitRemaining, strconv.Itoa(verdict.Remaining))
	c.Set(constant.RateLimitReset, strconv.FormatInt(verdict.ResetAt.Unix(), 10))
	c.Set(constant.RateLimitWindow, windowHint(verdict))
}

// shouldSkipPath checks if a path should bypass admission control.
// Exact path matching is used for performance.
func shouldSkipPath(path string, skipPaths []string) bool {
	return slices.Contains(skipPaths, path)
}

// admissionLogger picks the configured logger or the request-scoped one.
func admissionLogger(c *fiber.Ctx, config AdmissionConfig) log.Logger {
	if config.Logger != nil {
		return config.Logger
	}

	return admission.NewLoggerFromContext(c.UserContext())
}

// windowHint names the window a verdict reports.
func windowHint(verdict *ratelimit.Verdict) string {
	if verdict.WindowLabel != "" {
		return verdict.WindowLabel
	}

	return ratelimit.CanonicalLabel(verdict.LimitingWindow)
}
