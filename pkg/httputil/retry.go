// Package httputil holds the HTTP plumbing shared by remote document
// stores: a GET client that classifies failures, and retries with
// exponential backoff for the transient ones.
package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient. [Retry] only retries errors
// wrapped in it.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of calls, at least one.
	Attempts int
	// Delay is the wait before the second call; it doubles after each failure.
	Delay time.Duration
}

// DefaultPolicy makes three attempts starting with a half-second delay.
var DefaultPolicy = Policy{Attempts: 3, Delay: 500 * time.Millisecond}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// the policy is exhausted. It returns the last error, or ctx.Err() if ctx
// ends while waiting.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// IsRetryable reports whether err is marked transient.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
