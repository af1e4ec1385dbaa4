package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries:   n,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_DefaultIsSingleAttempt(t *testing.T) {
	// Given: an endpoint that is always unavailable
	attempts := 0
	unavailable := New(ErrCodeTransportUnavailable, "connection refused", nil)

	// When: retrying with the default config
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return unavailable
	})

	// Then: exactly one attempt and the error is returned unwrapped
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Same(t, unavailable, err)
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return New(ErrCodeTransportTimeout, "timeout", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnPermanentErrors(t *testing.T) {
	// Given: a bad-status error, which is not retryable
	attempts := 0
	err := Retry(context.Background(), fastRetry(5), func() error {
		attempts++
		return New(ErrCodeBadStatus, "status 500", nil)
	})

	// Then: no retries
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeBadStatus, GetCode(err))
}

func TestRetry_ExhaustedWrapsLastError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		attempts++
		return New(ErrCodeTransportUnavailable, "refused", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.True(t, IsRetryable(err))
}

func TestRetry_CustomPredicate(t *testing.T) {
	attempts := 0
	cfg := fastRetry(2)
	cfg.RetryIf = func(error) bool { return true }

	_ = Retry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("anything")
	})

	assert.Equal(t, 3, attempts)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, fastRetry(3), func() error {
		attempts++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := RetryWithResult(context.Background(), fastRetry(1), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", New(ErrCodeTransportTimeout, "timeout", nil)
		}
		return "it works", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "it works", got)
}
