// Package utils provides retry, rate limiting and log sanitizing helpers
// shared by the GrowthFlow client packages.
package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig defines the configuration for retry logic using backoff/v4
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryConfig returns a standard retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// NewExponentialBackOff creates a backoff.ExponentialBackOff from RetryConfig
func (rc RetryConfig) NewExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialDelay
	b.MaxInterval = rc.MaxDelay
	if rc.Multiplier > 0 {
		b.Multiplier = rc.Multiplier
	}
	if !rc.Jitter {
		b.RandomizationFactor = 0
	}
	// Attempts are bounded by MaxRetries and the caller's context.
	b.MaxElapsedTime = 0
	return b
}

// Permanent marks err as not worth retrying. ExecuteWithRetryContext stops at
// the first permanent error and returns the wrapped cause.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// RetryNotify is called before each wait with the failed attempt number
// (1-based), the error and the delay until the next attempt.
type RetryNotify func(attempt int, err error, next time.Duration)

// ExecuteWithRetryContext runs operation until it succeeds, returns a
// permanent error, exhausts MaxRetries or ctx is done.
func ExecuteWithRetryContext(ctx context.Context, operation func() error, config RetryConfig, notify RetryNotify) error {
	var policy backoff.BackOff = config.NewExponentialBackOff()
	if config.MaxRetries >= 0 {
		policy = backoff.WithMaxRetries(policy, uint64(config.MaxRetries))
	}
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		return operation()
	}, policy, func(err error, next time.Duration) {
		if notify != nil {
			notify(attempt, err, next)
		}
	})
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return fmt.Errorf("operation failed after %d attempt(s): %w", attempt, err)
}

// IsRetryableError determines if an HTTP status code is retryable (429 or 5xx)
func IsRetryableError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode <= 599)
}
