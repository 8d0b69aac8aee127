package collect

import (
	"context"
	"time"

	"github.com/skrigel/cinema-by-the-numbers/internal/transport"
)

// RetryPolicy bounds how a single fetch is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff returns the wait after the given zero-based failed attempt.
	Backoff func(attempt int) time.Duration
	// Retryable reports whether an error may succeed on a later attempt.
	Retryable func(err error) bool
}

// DefaultRetryPolicy retries network-level failures three times in total,
// waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second),
		Retryable:   transport.IsTransient,
	}
}

// Exponential returns base * 2^attempt.
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = def.Backoff
	}
	if p.Retryable == nil {
		p.Retryable = def.Retryable
	}
	return p
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
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

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. It returns the number of attempts made.
// Context cancellation ends the loop with ctx.Err().
func Retry[T any](ctx context.Context, p RetryPolicy, sleep SleepFunc, fn func(ctx context.Context) (T, error)) (T, int, error) {
	p = p.normalized()
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		zero T
		err  error
	)
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, attempt + 1, nil
		}
		if ctx.Err() != nil {
			return zero, attempt + 1, ctx.Err()
		}
		if !p.Retryable(err) {
			return zero, attempt + 1, err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
			return zero, attempt + 1, serr
		}
	}
	return zero, p.MaxAttempts, err
}
