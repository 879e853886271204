package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// ErrNotReady signals that an external report is still queued or in
// progress. It is not a failure, but rescheduling the poll consumes one
// retry slot.
var ErrNotReady = errors.New("report not ready")

// ErrRetriesExhausted wraps the last error once the bounded retry budget
// for a unit is spent. The unit is never re-attempted automatically.
var ErrRetriesExhausted = errors.New("max retries reached")

// PermanentError marks an error that must not be retried: the unit is
// fatal or misconfigured and further attempts are pointless.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retry executor stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError marker.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Retryer executes an operation with a bounded retry budget and
// exponential backoff between attempts.
type Retryer struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Sleep is injectable for tests; defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer creates a retryer with the given budget and backoff bounds.
func NewRetryer(maxRetries int, initialDelay, maxDelay time.Duration) *Retryer {
	return &Retryer{
		MaxRetries:   maxRetries,
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
	}
}

func (r *Retryer) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
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

func (r *Retryer) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if r.InitialDelay > 0 {
		bo.InitialInterval = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		bo.MaxInterval = r.MaxDelay
	}
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// Do runs op up to 1+MaxRetries times. op receives the zero-based attempt
// number. onAttempt, when non-nil, observes every failed attempt before the
// backoff delay; it is where callers record the activity log entry.
//
// A PermanentError stops retrying immediately and is returned unwrapped of
// the marker. When the budget is spent the last error is wrapped together
// with ErrRetriesExhausted.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, onAttempt func(attempt int, err error)) error {
	bo := r.newBackOff()

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(lastErr, &pe) {
			if onAttempt != nil {
				onAttempt(attempt, pe.Err)
			}
			return pe.Err
		}

		if onAttempt != nil {
			onAttempt(attempt, lastErr)
		}

		if attempt >= r.MaxRetries {
			return fmt.Errorf("%w after %d attempts: %s", ErrRetriesExhausted, attempt+1, lastErr)
		}
		if err := r.sleep(ctx, bo.NextBackOff()); err != nil {
			return err
		}
	}
}
