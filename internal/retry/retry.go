// Package retry implements the fixed-attempt, fixed-delay retry policy used at collaborator boundaries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries an operation up to Attempts times, sleeping Delay between attempts.
// With Linear set the n-th wait is n*Delay.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Linear   bool
}

// Default is one retry after a short fixed delay.
func Default() Policy {
	return Policy{Attempts: 2, Delay: 500 * time.Millisecond}
}

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts are spent, or ctx ends.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(p.wait(i + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (p Policy) wait(attempt int) time.Duration {
	if p.Linear {
		return p.Delay * time.Duration(attempt)
	}
	return p.Delay
}
