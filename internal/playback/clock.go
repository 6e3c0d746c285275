package playback

import "math"

// Clock maps between absolute timeline positions and normalized
// progress for one session's resolved bounds. Both directions are
// pure functions; all state lives in the Player.
type Clock struct {
	// Start is the resolved session start in epoch milliseconds.
	Start float64
	// Duration is the resolved session extent in milliseconds.
	Duration float64
}

// Progress converts a timeline position to percent of the session,
// clamped to [0, 100]. A non-finite position reads as the session
// start rather than propagating.
func (c Clock) Progress(t float64) float64 {
	if !isFinite(t) {
		t = c.Start
	}
	if c.Duration <= 0 {
		return 0
	}
	p := (t - c.Start) / c.Duration * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// TimeAt converts normalized progress back to a timeline position.
func (c Clock) TimeAt(progress float64) float64 {
	if !isFinite(progress) {
		return c.Start
	}
	return c.Start + progress/100*c.Duration
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
