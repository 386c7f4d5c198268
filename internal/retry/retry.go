// Package retry provides a small, configurable retry policy for calls to
// flaky external services. Only errors that declare themselves transient
// (connectivity trouble, timeouts, rate limits) are retried.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Transient is implemented by errors that are worth retrying.
type Transient interface {
	Transient() bool
}

// Policy controls repeated attempts at a fallible call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns the service-call policy: three attempts with
// exponential backoff between 4s and 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// Delay returns the backoff pause after the given zero-based failed attempt:
// BaseDelay doubled per attempt (by Multiplier), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	if limit := float64(p.MaxDelay); p.MaxDelay > 0 && d > limit {
		d = limit
	}
	return time.Duration(d)
}

// Do runs fn up to MaxAttempts times, sleeping Delay between attempts.
// Non-transient errors and context cancellation stop the attempts
// immediately; the last error is returned once attempts are exhausted.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if werr := Sleep(ctx, p.Delay(attempt-1)); werr != nil {
				return werr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
	}
	return err
}

// IsTransient reports whether err, or anything it wraps, is retryable.
// Network errors (including client timeouts) count as transient.
func IsTransient(err error) bool {
	var t Transient
	if errors.As(err, &t) {
		return t.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
