// Package poll runs fixed-interval query loops for asynchronous jobs
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is used when Options.Interval is zero
const DefaultInterval = 10 * time.Second

// ErrAttemptsExhausted matches any *AttemptsExhaustedError
var ErrAttemptsExhausted = errors.New("poll attempts exhausted")

// Options controls a polling loop
type Options struct {
	Interval    time.Duration // Optional, defaults to DefaultInterval
	MaxAttempts int           // Optional, 0 polls until ready or ctx is done
}

// AttemptsExhaustedError is returned when MaxAttempts queries all reported
// the job as not ready
type AttemptsExhaustedError struct {
	Attempts int
	LastCode int
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("job not ready after %d attempts (last code %d)", e.Attempts, e.LastCode)
}

func (e *AttemptsExhaustedError) Is(target error) bool {
	return target == ErrAttemptsExhausted
}

// Attempt performs one query. ready stops the loop; code is the service
// status seen, kept for error reporting. A non-nil error stops the loop and
// is returned unchanged.
type Attempt func(ctx context.Context, n int) (ready bool, code int, err error)

// Until calls attempt until it reports ready, returns an error, ctx is done,
// or MaxAttempts is reached. It sleeps Interval between attempts, never
// before the first or after the last.
func Until(ctx context.Context, opts Options, attempt Attempt) (int, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for n := 1; ; n++ {
		ready, code, err := attempt(ctx, n)
		if err != nil {
			return n, err
		}
		if ready {
			return n, nil
		}
		if opts.MaxAttempts > 0 && n >= opts.MaxAttempts {
			return n, &AttemptsExhaustedError{Attempts: n, LastCode: code}
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return n, ctx.Err()
		}
	}
}
