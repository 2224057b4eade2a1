package status

import (
	"errors"
	"testing"
	"time"
)

func TestCodeValues(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{Success, 0},
		{Unknown, 1000},
		{InvalidArguments, 2000},
		{IOError, 3000},
		{NetworkError, 4000},
		{AuthenticationFailed, 5000},
		{InvalidConfig, 10000},
		{ProviderNotFound, 11000},
		{RateLimited, 12000},
	}
	for _, tt := range tests {
		if int(tt.code) != tt.want {
			t.Errorf("%s = %d, want %d", tt.code.Name(), int(tt.code), tt.want)
		}
	}
}

func TestIsSuccess(t *testing.T) {
	if !IsSuccess(0) {
		t.Error("0 should be success")
	}
	if IsSuccess(1000) {
		t.Error("1000 should not be success")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []Code{NetworkError, RateLimited, Timeout, ServiceUnavailable, ResourcesExhausted, StreamError, Internal}
	for _, c := range retryable {
		if !c.IsRetryable() {
			t.Errorf("%s should be retryable", c.Name())
		}
	}
	notRetryable := []Code{InvalidArguments, AuthenticationFailed, PermissionDenied, QuotaExceeded, InvalidConfig}
	for _, c := range notRetryable {
		if c.IsRetryable() {
			t.Errorf("%s should not be retryable", c.Name())
		}
	}
}

func TestShouldLogError(t *testing.T) {
	for _, c := range []Code{Unknown, Internal, External, ProviderError, StreamError} {
		if !c.ShouldLogError() {
			t.Errorf("%s should log", c.Name())
		}
	}
	for _, c := range []Code{InvalidArguments, AuthenticationFailed, RateLimited} {
		if c.ShouldLogError() {
			t.Errorf("%s should not log", c.Name())
		}
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		code Code
		want Category
	}{
		{Success, CategorySuccess},
		{Unknown, CategoryCommon},
		{InvalidArguments, CategoryInput},
		{IOError, CategoryIO},
		{NetworkError, CategoryNetwork},
		{AuthenticationFailed, CategoryAuth},
		{InvalidConfig, CategoryConfig},
		{ProviderNotFound, CategoryProvider},
		{RateLimited, CategoryResource},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%s.Category() = %q, want %q", tt.code.Name(), got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	if Success.Name() != "Success" {
		t.Errorf("name = %q", Success.Name())
	}
	if NetworkError.Name() != "NetworkError" {
		t.Errorf("name = %q", NetworkError.Name())
	}
	if Code(99999).Name() != "Unknown" {
		t.Errorf("unknown code name = %q", Code(99999).Name())
	}
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(NetworkError, cause, "connect failed")

	if CodeOf(err) != NetworkError {
		t.Errorf("CodeOf = %v", CodeOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if !IsRetryable(err) {
		t.Error("network error should be retryable")
	}

	rl := RateLimitedError("slow down", 2*time.Second)
	if RetryAfterOf(rl) != 2*time.Second {
		t.Errorf("RetryAfterOf = %v", RetryAfterOf(rl))
	}
	if RetryAfterOf(cause) != 0 {
		t.Errorf("foreign error retry-after = %v, want 0", RetryAfterOf(cause))
	}
}
