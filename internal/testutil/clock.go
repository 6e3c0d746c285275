package testutil

import (
	"sync"
	"time"
)

// FakeClock provides a thread-safe, manually advanced wall clock for
// tests.
//
// Playback pacing reads measured elapsed wall time, so a test that
// advances the clock by a known amount and then fires a tick gets
// exactly reproducible virtual-time math, independent of scheduler
// latency.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock frozen at the given instant.
func NewFakeClock(at time.Time) *FakeClock {
	return &FakeClock{now: at}
}

// Now returns the clock's current instant without advancing it.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to an absolute instant. Used for test reuse;
// unlike Advance it may move the clock backwards.
func (c *FakeClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
