// Package retry implements backoff scheduling for transient provider
// failures. Retryability is decided by the status-code taxonomy; delays
// grow exponentially and honor server-supplied retry-after hints.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cocodehq/cocode/internal/status"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay after the first failure.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor.
	Multiplier float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// Decision is the outcome of classifying one failure.
type Decision struct {
	// Retry is false when the operation should give up.
	Retry bool
	// Delay to wait before the next attempt; meaningful only when Retry.
	Delay time.Duration
}

// GiveUp is the terminal decision.
var GiveUp = Decision{}

// Context tracks attempts for one logical operation. Not safe for
// concurrent use; create one per request.
type Context struct {
	config  Config
	attempt int
	lastErr error
}

// NewContext creates a retry context with the given config.
func NewContext(config Config) *Context {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	return &Context{config: config}
}

// WithDefaults creates a retry context with the default config.
func WithDefaults() *Context {
	return NewContext(DefaultConfig())
}

// CurrentAttempt returns the number of failures recorded so far.
func (c *Context) CurrentAttempt() int { return c.attempt }

// LastError returns the most recent classified error.
func (c *Context) LastError() error { return c.lastErr }

// Reset clears attempt tracking for reuse.
func (c *Context) Reset() {
	c.attempt = 0
	c.lastErr = nil
}

// ShouldRetry records a failure and reports whether another attempt is
// allowed. Non-retryable errors never retry; retryable errors retry until
// the attempt count exceeds MaxRetries.
func (c *Context) ShouldRetry(err error) bool {
	c.attempt++
	c.lastErr = err
	if !status.IsRetryable(err) {
		return false
	}
	return c.attempt <= c.config.MaxRetries
}

// CalculateDelay computes the backoff for the current attempt. A
// server-supplied retry-after hint overrides the exponential schedule.
func (c *Context) CalculateDelay(err error) time.Duration {
	if after := status.RetryAfterOf(err); after > 0 {
		return after
	}
	attempt := c.attempt
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.config.BaseDelay) * math.Pow(c.config.Multiplier, float64(attempt-1))
	if delay > float64(c.config.MaxDelay) {
		return c.config.MaxDelay
	}
	return time.Duration(delay)
}

// Decide records a failure and returns the combined retry decision.
func (c *Context) Decide(err error) Decision {
	if !c.ShouldRetry(err) {
		return GiveUp
	}
	return Decision{Retry: true, Delay: c.CalculateDelay(err)}
}

// Do runs op, retrying per the config until success, a non-retryable
// error, or exhaustion. The context cancels waits between attempts.
func Do(ctx context.Context, config Config, op func() error) error {
	rc := NewContext(config)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil {
			return nil
		}
		decision := rc.Decide(err)
		if !decision.Retry {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(decision.Delay):
		}
	}
}
