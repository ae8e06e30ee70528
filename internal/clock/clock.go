// Package clock abstracts the time operations the loop blocks on so that
// backoff, polling, and inter-iteration waits can be driven by a fake in
// tests.
package clock

import (
	"context"
	"time"
)

// Clock is the subset of the time package the loop uses. Production code
// injects Real(); tests inject Fake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has elapsed.
	// If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sleep blocks for d on c, returning early when ctx is cancelled.
// Returns false if the wait was cut short by cancellation, including when
// ctx was already done before the wait began.
func Sleep(ctx context.Context, c Clock, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.After(d):
		return ctx.Err() == nil
	}
}
