package playback

import (
	"sync"
	"time"
)

// Clock is the monotonic transport clock all automation is evaluated
// against. Ramps are scheduled at absolute clock offsets, so jitter in
// tick delivery cannot desynchronize the curves.
type Clock interface {
	// Now returns the elapsed time since the clock started
	Now() time.Duration
}

type realClock struct {
	start time.Time
}

// NewRealClock returns a Clock backed by the wall monotonic clock
func NewRealClock() Clock {
	return &realClock{start: time.Now()}
}

func (c *realClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock is a hand-advanced Clock for tests
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock returns a ManualClock at zero
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set moves the clock to an absolute offset
func (c *ManualClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}
