package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Run("Should return the kind of a typed error", func(t *testing.T) {
		err := NewKindError(KindRateLimited, nil, "RATE_LIMITED", "slow down", nil)
		assert.Equal(t, KindRateLimited, KindOf(err))
	})

	t.Run("Should unwrap through layers of wrapping", func(t *testing.T) {
		inner := NewKindError(KindNotFound, nil, "NOT_FOUND", "missing", nil)
		wrapped := fmt.Errorf("fetching workflow: %w", inner)
		assert.Equal(t, KindNotFound, KindOf(wrapped))
	})

	t.Run("Should map context cancellation to the cancelled kind", func(t *testing.T) {
		err := fmt.Errorf("request aborted: %w", context.Canceled)
		assert.Equal(t, KindCancelled, KindOf(err))
	})

	t.Run("Should map plain errors to the internal kind", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})

	t.Run("Should return an empty kind for nil", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(nil))
	})
}

func TestError(t *testing.T) {
	t.Run("Should include the wrapped cause in the message", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewError(cause, "TRANSPORT_FAILED", nil)
		assert.Contains(t, err.Error(), "TRANSPORT_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should fall back to the code when no cause is given", func(t *testing.T) {
		err := NewError(nil, "STORE_CORRUPT", nil)
		assert.Equal(t, "STORE_CORRUPT: STORE_CORRUPT", err.Error())
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Run("Should read the hint from a rate-limited error", func(t *testing.T) {
		err := NewKindError(KindRateLimited, nil, "RATE_LIMITED", "slow down", map[string]any{
			"retry_after_seconds": 30,
		})
		secs, ok := RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 30, secs)
	})

	t.Run("Should accept a float hint from decoded JSON", func(t *testing.T) {
		err := NewKindError(KindRateLimited, nil, "RATE_LIMITED", "slow down", map[string]any{
			"retry_after_seconds": float64(7),
		})
		secs, ok := RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 7, secs)
	})

	t.Run("Should report absence for other kinds", func(t *testing.T) {
		err := NewKindError(KindServerError, nil, "SERVER_ERROR", "oops", map[string]any{
			"retry_after_seconds": 30,
		})
		_, ok := RetryAfterSeconds(err)
		assert.False(t, ok)
	})

	t.Run("Should report absence when the hint is missing", func(t *testing.T) {
		err := NewKindError(KindRateLimited, nil, "RATE_LIMITED", "slow down", nil)
		_, ok := RetryAfterSeconds(err)
		assert.False(t, ok)
	})
}
