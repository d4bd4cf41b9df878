package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/notifier"
	"github.com/emzola/bibliotheca-circulation/repository"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries_edit_conflicts_until_success", func(t *testing.T) {
		calls := 0
		err := retry(ctx, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return repository.ErrEditConflict
			}
			return nil
		}, withBaseDelay(time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns_other_errors_immediately", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := retry(ctx, func(ctx context.Context) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns_last_error_after_max_attempts", func(t *testing.T) {
		calls := 0
		err := retry(ctx, func(ctx context.Context) error {
			calls++
			return repository.ErrEditConflict
		}, withMaxAttempts(2), withBaseDelay(0))
		assert.ErrorIs(t, err, repository.ErrEditConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("custom_predicate", func(t *testing.T) {
		calls := 0
		err := retry(ctx, func(ctx context.Context) error {
			calls++
			return errNotDelivered
		}, withMaxAttempts(3), withBaseDelay(0), retryOn(isTransient))
		assert.ErrorIs(t, err, errNotDelivered)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops_when_context_is_cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retry(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return repository.ErrEditConflict
		}, withBaseDelay(time.Hour))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid_options", func(t *testing.T) {
		fn := func(ctx context.Context) error { return nil }
		assert.ErrorIs(t, retry(ctx, fn, withMaxAttempts(0)), errInvalidMaxAttempts)
		assert.ErrorIs(t, retry(ctx, fn, withBaseDelay(-time.Second)), errNegativeBaseDelay)
		assert.ErrorIs(t, retry(ctx, fn, withJitterFactor(1.5)), errInvalidJitterFactor)
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errNotDelivered))
	assert.True(t, isTransient(errors.New("connection reset")))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(context.DeadlineExceeded))
	assert.False(t, isTransient(fmt.Errorf("%w: webhook refused: 400 Bad Request", notifier.ErrRejected)))
}

func TestRetryStopsOnRejectedNotification(t *testing.T) {
	calls := 0
	err := retry(context.Background(), func(ctx context.Context) error {
		calls++
		return fmt.Errorf("%w: webhook refused loan_overdue notification: 400 Bad Request", notifier.ErrRejected)
	}, withMaxAttempts(3), withBaseDelay(0), retryOn(isTransient))
	assert.ErrorIs(t, err, notifier.ErrRejected)
	assert.Equal(t, 1, calls)
}
