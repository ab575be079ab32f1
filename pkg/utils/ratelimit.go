package utils

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, maxBurst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if maxBurst <= 0 {
		maxBurst = 10
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), maxBurst)}
}

// Wait blocks until a token is available or context is cancelled. A wait
// that cannot finish before the context deadline fails immediately with
// context.DeadlineExceeded.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if err := rl.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limit: %v: %w", err, context.DeadlineExceeded)
	}
	return nil
}
