package clock

import (
	"sync"
	"time"
)

// FakeClock is a deterministic Clock for tests. Unlike a wall clock, every
// After call advances the fake time by the requested duration and fires
// immediately, so code that sleeps runs without blocking while still
// observing elapsed time through Now.
//
// Every requested wait is recorded and can be inspected with Sleeps.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Duration
}

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After advances the clock by d, records the wait, and returns a channel
// that has already received the new time.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.current = c.current.Add(d)
		c.sleeps = append(c.sleeps, d)
	}
	channel := make(chan time.Time, 1)
	channel <- c.current
	return channel
}

// Advance moves the clock forward by d without recording a wait.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Sleeps returns a copy of every wait requested through After, in order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
