// Package retry runs an operation with bounded exponential backoff. The
// operation decides what counts as success and what is worth retrying;
// this package only decides when to try again.
package retry

import (
	"context"
	"time"

	"github.com/CodexForgeBR/jules-loop/internal/clock"
)

// Multiplier is the growth factor between consecutive delays.
const Multiplier = 3

// Attempt is the result of one invocation of an operation.
type Attempt[T any] struct {
	Success   bool
	Retryable bool
	Result    T
}

// Policy configures Do.
type Policy struct {
	MaxAttempts int           // total invocations, including the first (default 1)
	BaseDelay   time.Duration // delay before the second invocation
	Clock       clock.Clock   // default clock.Real()

	// OnRetry is called before each backoff sleep with the number of the
	// attempt that just failed (1-based) and the delay about to be waited.
	OnRetry func(attempt int, delay time.Duration)
}

// Delay returns the wait after the given failed attempt (1-based):
// base, base*3, base*9, ...
func Delay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= Multiplier
	}
	return d
}

// Do invokes op until it succeeds, reports a non-retryable failure, or
// MaxAttempts invocations have been made. op receives the 1-based attempt
// number. The result of the last invocation is returned either way.
//
// Cancellation of ctx during a backoff sleep ends the loop with failure.
func Do[T any](ctx context.Context, p Policy, op func(attempt int) Attempt[T]) (bool, T) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Clock == nil {
		p.Clock = clock.Real()
	}

	attempt := 0
	for {
		res := op(attempt + 1)
		if res.Success {
			return true, res.Result
		}

		attempt++
		if !res.Retryable || attempt >= p.MaxAttempts {
			return false, res.Result
		}

		delay := Delay(p.BaseDelay, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay)
		}
		if !clock.Sleep(ctx, p.Clock, delay) {
			return false, res.Result
		}
	}
}
