package util

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls RetryWithContext.
//
// MaxTries <= 0 means a single attempt. Backoff is the delay before the
// second attempt and doubles for every further one, capped at MaxBackoff when
// that is set. Retryable, if set, decides whether an error is worth another
// attempt; context errors are never retried.
type RetryPolicy struct {
	MaxTries   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Retryable  func(error) bool
}

// RetryWithContext calls fn until it succeeds, the attempts are used up, the
// error is not retryable or ctx is done. It returns ctx.Err() if the context
// ends while waiting, otherwise the last error.
func RetryWithContext[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	maxTries := policy.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}

	var zero T
	var lastErr error
	delay := policy.Backoff
	for i := 0; i < maxTries; i++ {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
				delay = policy.MaxBackoff
			}
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if policy.Retryable != nil && !policy.Retryable(err) {
			break
		}
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
