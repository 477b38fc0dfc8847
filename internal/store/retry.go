package store

import (
	"context"
	"errors"
	"time"

	"github.com/Naga-Manohar-Y/EventMind/internal/metrics"
)

// RetryPolicy is an explicit retry rule handed to persistence operations:
// how often to attempt, how long to pause, and which errors are worth
// another try.
type RetryPolicy struct {
	Attempts  int
	Backoff   time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the store contention rule: three attempts with
// a 100ms pause, retrying only busy/locked conditions.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		Backoff:   100 * time.Millisecond,
		Retryable: func(err error) bool { return errors.Is(err, ErrBusy) },
	}
}

// Do runs fn under the policy. Non-retryable errors return immediately;
// retryable ones are returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			metrics.StoreBusyRetries.Inc()
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}
