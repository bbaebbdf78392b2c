// Package testutil provides deterministic time and id sources for tests.
// Production wiring never imports this package.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe deterministic time source. Each Now call
// advances the reported time by a fixed step, so timestamp-bearing
// records (blocks, gate events) are reproducible across runs.
//
// Unlike the system clock, Clock can be reset for test reuse.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	now   time.Time
}

// NewClock creates a clock starting at start, advancing by step per Now
// call. A zero step freezes the clock.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, step: step, now: start}
}

// DefaultClock returns a clock at a fixed epoch advancing one second per
// call. Convenient for tests that only need stable, distinct timestamps.
func DefaultClock() *Clock {
	return NewClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Second)
}

// Now returns the current time and advances the clock by one step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the time the next Now call will report.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start time.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
