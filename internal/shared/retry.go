package shared

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds the read-validate-write replay loop used by every mutating operation.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts including the first (default: 4)
	Backoff     time.Duration // Linear backoff unit between attempts (default: 10ms)
	OpTimeout   time.Duration // Deadline applied to each individual storage call (default: 2s)
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, Backoff: 10 * time.Millisecond, OpTimeout: 2 * time.Second}
}

func (p RetryPolicy) normalize() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.OpTimeout <= 0 {
		p.OpTimeout = d.OpTimeout
	}
	return p
}

// Retry runs fn until it returns something other than [ErrRetryable] or the attempts run out.
//
// Exhaustion surfaces [ErrConflict] when the last cause was a version race and [ErrUnavailable] otherwise,
// so [ErrRetryable] never leaves this function.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.normalize()

	var last error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrRetryable) {
			return err
		}
		last = err

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-time.After(policy.Backoff * time.Duration(attempt)):
		}
	}

	if errors.Is(last, ErrVersionConflict) {
		return fmt.Errorf("%w: gave up after %d attempts: %w", ErrConflict, policy.MaxAttempts, ErrVersionConflict)
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrUnavailable, policy.MaxAttempts, last)
}

// WithOpTimeout derives the per-call storage deadline from the policy.
func (p RetryPolicy) WithOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.normalize().OpTimeout)
}

// StorageError classifies an error returned by a storage call made inside a retry loop.
//
// Domain errors (not found, conflict, invalid input) pass through unchanged. Version conflicts and
// I/O failures, timeouts included, become retryable.
func StorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, ErrVersionConflict):
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: %v", ErrRetryable, ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}
}
