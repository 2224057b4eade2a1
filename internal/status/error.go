package status

import (
	"errors"
	"fmt"
	"time"
)

// Error is a typed error carrying a status code and, for rate limits, an
// optional server-supplied retry-after hint.
type Error struct {
	Code    Code
	Message string
	// RetryAfter is the server-requested backoff, zero when absent.
	RetryAfter time.Duration
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code.Name(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code.Name(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf creates a status error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a status error wrapping a cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// RateLimitedError creates a rate-limit error with a retry-after hint.
func RateLimitedError(message string, retryAfter time.Duration) *Error {
	return &Error{Code: RateLimited, Message: message, RetryAfter: retryAfter}
}

// CodeOf extracts the status code from an error chain, defaulting to
// Unknown for foreign errors and Success for nil.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Unknown
}

// RetryAfterOf extracts a retry-after hint from an error chain, zero when
// absent.
func RetryAfterOf(err error) time.Duration {
	var se *Error
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// IsRetryable reports whether the error chain carries a retryable code.
// Foreign (untyped) errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code.IsRetryable()
	}
	return false
}
