package testutil

import "time"

// ManualTicker is a playback tick source that beats only when the
// test says so.
//
// Fire sends on an unbuffered channel, so it returns once the tick
// loop has received the beat. Combined with FakeClock this makes a
// replay fully deterministic: advance the clock, fire, assert.
//
// Fire must not be called after the consuming schedule has stopped;
// with nobody receiving, it would block forever. Tests observe the
// pause (for example with require.Eventually) before firing again.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker creates a ticker with no pending beats.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C delivers the beats.
func (t *ManualTicker) C() <-chan time.Time { return t.ch }

// Stop is a no-op; the test owns the ticker's lifetime.
func (t *ManualTicker) Stop() {}

// Fire delivers one beat and blocks until the tick loop receives it.
func (t *ManualTicker) Fire() {
	t.ch <- time.Time{}
}
