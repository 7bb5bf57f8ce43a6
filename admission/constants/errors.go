// Package constant defines common constants used across the library.
// It includes error codes, header names, and other shared constant definitions.
package constant

import "errors"

var (
	// ErrRateLimitExceeded indicates the identity exhausted its admission quota.
	ErrRateLimitExceeded = errors.New("0100")
	// ErrBackendUnavailable indicates the shared counter backend cannot be reached.
	ErrBackendUnavailable = errors.New("0101")
	// ErrPolicyNotFound indicates no admission policy is registered for the identity.
	ErrPolicyNotFound = errors.New("0102")
	// ErrMalformedIdentity indicates the request carried an unusable client identity.
	ErrMalformedIdentity = errors.New("0103")
)
