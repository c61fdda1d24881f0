// Package llmhttp holds shared HTTP plumbing for external API clients:
// a typed error taxonomy, backoff math, and log redaction helpers.
package llmhttp

import "fmt"

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeContentFiltered
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeContentFiltered:
		return "content filtered"
	default:
		return "unknown error"
	}
}

// Error is an API client error with retryability context. Transient errors
// (rate limit, 5xx, timeout) are retryable; permanent ones (bad request,
// authentication, content policy) are not.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Service    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Service, e.Type.String(), e.Message, e.StatusCode)
}

// Is implements error matching by type for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable returns true if the error is worth retrying.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// FromStatusCode maps an HTTP status code onto a typed error.
func FromStatusCode(service string, statusCode int, message string) *Error {
	switch {
	case statusCode == 401 || statusCode == 403:
		return &Error{Type: ErrTypeAuthentication, Message: message, StatusCode: statusCode, Service: service}
	case statusCode == 429:
		return &Error{Type: ErrTypeRateLimit, Message: message, StatusCode: statusCode, Retryable: true, Service: service}
	case statusCode == 400:
		return &Error{Type: ErrTypeInvalidRequest, Message: message, StatusCode: statusCode, Service: service}
	case statusCode >= 500:
		return &Error{Type: ErrTypeServiceUnavailable, Message: message, StatusCode: statusCode, Retryable: true, Service: service}
	default:
		return &Error{Type: ErrTypeUnknown, Message: message, StatusCode: statusCode, Service: service}
	}
}

// NewTimeoutError creates a retryable error for network-level failures.
func NewTimeoutError(service, message string) *Error {
	return &Error{Type: ErrTypeTimeout, Message: message, Retryable: true, Service: service}
}

// NewContentFilteredError creates a permanent error for policy rejections.
func NewContentFilteredError(service, message string) *Error {
	return &Error{Type: ErrTypeContentFiltered, Message: message, StatusCode: 400, Service: service}
}
