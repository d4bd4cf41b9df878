package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/emzola/bibliotheca-circulation/notifier"
	"github.com/emzola/bibliotheca-circulation/repository"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	errInvalidMaxAttempts  = errors.New("max attempts must be positive")
	errNegativeBaseDelay   = errors.New("base delay must not be negative")
	errInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryable    func(error) bool
}

type retryOption func(*retryConfig) error

// retry runs fn until it succeeds, returns an error the config does not
// consider retryable, or maxAttempts is reached. Attempt n waits
// baseDelay*2^(n-1) plus jitter before it runs. By default only edit
// conflicts are retried.
func retry(ctx context.Context, fn func(ctx context.Context) error, options ...retryOption) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		retryable:    isEditConflict,
	}
	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}
	var lastErr error
	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !config.retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func isEditConflict(err error) bool {
	return errors.Is(err, repository.ErrEditConflict)
}

// isTransient treats everything except cancellation and a refusal from the
// notification channel as worth another try.
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, notifier.ErrRejected)
}

func withMaxAttempts(attempts int) retryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return errInvalidMaxAttempts
		}
		config.maxAttempts = attempts
		return nil
	}
}

func withBaseDelay(delay time.Duration) retryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return errNegativeBaseDelay
		}
		config.baseDelay = delay
		return nil
	}
}

func withJitterFactor(factor float64) retryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return errInvalidJitterFactor
		}
		config.jitterFactor = factor
		return nil
	}
}

func retryOn(retryable func(error) bool) retryOption {
	return func(config *retryConfig) error {
		config.retryable = retryable
		return nil
	}
}
