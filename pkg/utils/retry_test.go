package utils

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestExecuteWithRetryContext(t *testing.T) {
	t.Run("success first try", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetryContext(context.Background(), func() error {
			calls++
			return nil
		}, fastRetryConfig(2), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("success after retries", func(t *testing.T) {
		calls := 0
		notified := 0
		err := ExecuteWithRetryContext(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("temporary error")
			}
			return nil
		}, fastRetryConfig(3), func(attempt int, err error, next time.Duration) {
			notified++
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, notified)
	})

	t.Run("fail after max retries", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetryContext(context.Background(), func() error {
			calls++
			return errors.New("persistent error")
		}, fastRetryConfig(2), nil)

		require.Error(t, err)
		// Initial try + 2 retries
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "persistent error")
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		cause := errors.New("bad request")
		calls := 0
		err := ExecuteWithRetryContext(context.Background(), func() error {
			calls++
			return Permanent(cause)
		}, fastRetryConfig(5), nil)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := ExecuteWithRetryContext(ctx, func() error {
			calls++
			return nil
		}, fastRetryConfig(5), nil)

		require.Error(t, err)
		assert.Equal(t, 0, calls)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.status), "status %d", tt.status)
	}
}
