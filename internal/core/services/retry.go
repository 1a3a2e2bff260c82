package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// Status tags the result of one attempt.
type Status int

// Attempt statuses.
const (
	// StatusSuccess stops the retry loop.
	StatusSuccess Status = iota

	// StatusRetryable schedules another attempt if any are left.
	StatusRetryable

	// StatusFatal stops the retry loop with the attempt's error.
	StatusFatal
)

// String returns the string representation.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRetryable:
		return "retryable"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one attempt.
type Result struct {
	Status Status
	Err    error
}

// Success returns a successful result.
func Success() Result {
	return Result{Status: StatusSuccess}
}

// Retryable returns a result that may be retried.
func Retryable(err error) Result {
	return Result{Status: StatusRetryable, Err: err}
}

// Fatal returns a result that must not be retried.
func Fatal(err error) Result {
	return Result{Status: StatusFatal, Err: err}
}

// Classify maps a platform error onto a result: transient conflicts are
// retryable, every other error is fatal.
func Classify(err error) Result {
	switch {
	case err == nil:
		return Success()
	case errors.Is(err, domain.ErrPlatformConflict):
		return Retryable(err)
	default:
		return Fatal(err)
	}
}

// Attempt performs one try. attempt counts from 0.
type Attempt func(ctx context.Context, attempt int) Result

// RetryPolicy bounds a retry loop.
type RetryPolicy struct {
	// MaxAttempts is the attempt ceiling.
	MaxAttempts int

	// Delay is the fixed throttle between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the policy used for platform writes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 8, Delay: 5 * time.Second}
}

// Retry runs fn until it succeeds, fails fatally, or the attempts run out.
// Exhaustion returns an error wrapping both domain.ErrAttemptsExhausted and
// the last attempt's error.
func Retry(ctx context.Context, policy RetryPolicy, name string, fn Attempt) error {
	attempts := max(policy.MaxAttempts, 1)

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, policy.Delay); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}

		res := fn(ctx, i)
		switch res.Status {
		case StatusSuccess:
			return nil
		case StatusFatal:
			return fmt.Errorf("%s: %w", name, res.Err)
		default:
			last = res.Err
			logger.Warn("%s failed on attempt %d: %v", name, i, res.Err)
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", name, domain.ErrAttemptsExhausted, attempts, last)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
