package admission

import (
	"strings"

	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
)

// Response is a struct used to return business errors to the client.
type Response struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (r Response) Error() string {
	return r.Message
}

// RateLimitError represents an admission denial with code, title, and message.
// RetryAfter and Window carry the retry hint and the window that denied the
// request when the error is rendered as a 429 body.
type RateLimitError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Window     string `json:"window,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e RateLimitError) Error() string {
	if strings.TrimSpace(e.Code) == "" {
		return e.Message
	}

	return e.Code + " - " + e.Message
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e RateLimitError) Unwrap() error {
	return e.Err
}

// ValidateRateLimitError builds the standard rate limit exceeded error,
// wrapping the originating error for later unwrapping.
func ValidateRateLimitError(err error, entityType string) *RateLimitError {
	return &RateLimitError{
		EntityType: entityType,
		Code:       constant.ErrRateLimitExceeded.Error(),
		Title:      "Rate Limit Exceeded",
		Message:    "Too many requests. Please try again later.",
		Err:        err,
	}
}

// ValidateBusinessError validates the error and returns the appropriate business error code, title, and message.
//
// Parameters:
//   - err: The error to be validated.
//   - entityType: The type of the entity related to the error.
//   - args: Additional arguments for formatting error messages.
//
// Returns:
//   - error: The appropriate business error with code, title, and message.
func ValidateBusinessError(err error, entityType string, args ...any) error {
	errorMap := map[error]error{
		constant.ErrRateLimitExceeded: Response{
			EntityType: entityType,
			Code:       constant.ErrRateLimitExceeded.Error(),
			Title:      "Rate Limit Exceeded",
			Message:    "Too many requests. Please try again later.",
		},
		constant.ErrBackendUnavailable: Response{
			EntityType: entityType,
			Code:       constant.ErrBackendUnavailable.Error(),
			Title:      "Counter Backend Unavailable",
			Message:    "The shared counter backend could not be reached. Admission continued on the local fallback.",
		},
		constant.ErrPolicyNotFound: Response{
			EntityType: entityType,
			Code:       constant.ErrPolicyNotFound.Error(),
			Title:      "Admission Policy Not Found",
			Message:    "No admission policy is registered for this identity. The default policy was applied.",
		},
		constant.ErrMalformedIdentity: Response{
			EntityType: entityType,
			Code:       constant.ErrMalformedIdentity.Error(),
			Title:      "Malformed Client Identity",
			Message:    "The request carried an unusable client identity. The connection address was used instead.",
		},
	}

	if mappedError, found := errorMap[err]; found {
		return mappedError
	}

	return err
}
