// Package ratelimit implements multi-window admission control: policies made
// of ordered fixed windows, a limiter that charges every request to shared
// counters, and the verdicts handed to the HTTP layer.
package ratelimit

import (
	"strconv"
	"time"

	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
)

const (
	// NamespaceIP marks identities derived from the client address.
	NamespaceIP = "ip"

	// NamespaceToken marks identities derived from an API credential.
	NamespaceToken = "token"
)

// Identity is the stable subject admission decisions are charged to.
type Identity struct {
	// Namespace partitions identity ids, for example "ip" or "token"
	Namespace string

	// ID is the identity value within its namespace
	ID string
}

func (i Identity) String() string {
	return i.Namespace + ":" + i.ID
}

// Window is one fixed-window constraint of a policy.
type Window struct {
	// Duration is the window length
	Duration time.Duration

	// MaxRequests is the highest count still admitted inside one window
	MaxRequests int

	// Label names the window inside counter keys. Policies with a single
	// window may leave it empty; multi-window policies get canonical labels
	// assigned when empty.
	Label string
}

// WindowKey addresses one identity's counter in one policy window.
type WindowKey struct {
	Namespace string
	ID        string
	Label     string
}

// String renders the counter key, "rate_limit:<namespace>:<id>" with the
// window label appended when present.
func (k WindowKey) String() string {
	key := constant.KeyPrefix + ":" + k.Namespace + ":" + k.ID
	if k.Label != "" {
		key += ":" + k.Label
	}

	return key
}

// FailureMode defines how admission behaves when the counter backend fails.
type FailureMode string

const (
	// FailOpen allows requests through when the counter fails (prioritizes availability)
	FailOpen FailureMode = "fail_open"

	// FailClosed blocks requests when the counter fails (prioritizes security)
	FailClosed FailureMode = "fail_closed"
)

// CanonicalLabel names a window duration: "minute", "hour" and "day" for the
// common durations, the second count otherwise.
func CanonicalLabel(d time.Duration) string {
	switch d {
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	case 24 * time.Hour:
		return "day"
	default:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
}

// Verdict contains the outcome of an admission check.
// This struct is designed to provide all information needed
// to make decisions and populate HTTP headers.
type Verdict struct {
	// Allowed indicates if the request should be processed
	Allowed bool

	// Limit is the maximum requests allowed in the reported window
	Limit int

	// Remaining is the number of requests remaining in the reported window
	// Will be 0 if the limit is exceeded
	Remaining int

	// RetryAfter is how long the client should wait before retrying
	// Only set on denials
	RetryAfter time.Duration

	// ResetAt is when the reported window resets
	ResetAt time.Time

	// LimitingWindow is the duration of the window that denied the request,
	// or of the tightest window when allowed
	LimitingWindow time.Duration

	// WindowLabel names the reported window, empty for unlabeled windows
	WindowLabel string
}
