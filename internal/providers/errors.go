package providers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cocodehq/cocode/internal/status"
)

// normalizeError maps a provider SDK error onto the status-code taxonomy so
// the retry engine can classify it without knowing provider details.
func normalizeError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var se *status.Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.Wrap(status.Canceled, err, provider+" request canceled")
	}

	code := classifyMessage(err.Error())
	wrapped := status.Wrap(code, err, provider+" request failed")
	if code == status.RateLimited {
		wrapped.RetryAfter = retryAfterFromMessage(err.Error())
	}
	return wrapped
}

// classifyMessage buckets an error by its message when no typed information
// is available. The SDKs embed HTTP status codes in their error strings.
func classifyMessage(msg string) status.Code {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "previous response") && strings.Contains(lower, "not found"):
		return status.PreviousResponseNotFound
	case strings.Contains(lower, "rate_limit"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "429"):
		return status.RateLimited
	case strings.Contains(lower, "quota"):
		return status.QuotaExceeded
	case strings.Contains(lower, "401"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "authentication"):
		return status.AuthenticationFailed
	case strings.Contains(lower, "403"),
		strings.Contains(lower, "permission"):
		return status.PermissionDenied
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"):
		return status.Timeout
	case strings.Contains(lower, "500"),
		strings.Contains(lower, "502"),
		strings.Contains(lower, "503"),
		strings.Contains(lower, "504"),
		strings.Contains(lower, "internal server error"),
		strings.Contains(lower, "bad gateway"),
		strings.Contains(lower, "service unavailable"),
		strings.Contains(lower, "overloaded"):
		return status.ServiceUnavailable
	case strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "eof"):
		return status.NetworkError
	case strings.Contains(lower, "400"),
		strings.Contains(lower, "invalid request"):
		return status.InvalidArguments
	default:
		return status.ProviderError
	}
}

// retryAfterFromMessage extracts a "retry after Ns" hint if the provider
// embedded one in the message.
func retryAfterFromMessage(msg string) time.Duration {
	lower := strings.ToLower(msg)
	idx := strings.Index(lower, "retry after ")
	if idx < 0 {
		return 0
	}
	rest := lower[idx+len("retry after "):]
	var digits strings.Builder
	for _, r := range rest {
		if r < '0' || r > '9' {
			break
		}
		digits.WriteRune(r)
	}
	if digits.Len() == 0 {
		return 0
	}
	secs, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
