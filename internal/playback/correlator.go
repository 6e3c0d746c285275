package playback

import (
	"math"

	"github.com/agentbox/agentbox/internal/timeline"
	"github.com/agentbox/agentbox/internal/trace"
)

// shortSessionMS selects the correlation strategy. Sessions shorter
// than this map progress proportionally onto the sequence index;
// everything else uses interval containment.
const shortSessionMS = 1000

// Correlator decides which event is active at a timeline position.
// It only proposes a selection; it never mutates playback state and
// never moves the timeline itself.
//
// Thread-safety: stateless over immutable inputs, safe for concurrent
// use.
type Correlator struct {
	tl  *timeline.Timeline
	clk Clock
}

// NewCorrelator builds a correlator over one ingested session.
func NewCorrelator(tl *timeline.Timeline, clk Clock) *Correlator {
	return &Correlator{tl: tl, clk: clk}
}

// Active returns the id of the event that should be selected at
// position t given the current selection.
//
// Short sessions (under one second) map progress onto the sequence
// index, so scrubbing sweeps every event even when all timestamps
// collapse together. Longer sessions pick the first event in
// chronological order whose interval contains t; in coverage gaps the
// current selection is kept, so selection never flickers to empty
// between events.
//
// Active is idempotent: the same inputs always return the same id.
func (c *Correlator) Active(t float64, current string) string {
	if c.tl.Len() == 0 {
		return current
	}

	if c.clk.Duration < shortSessionMS {
		idx := int(math.Floor(c.clk.Progress(t) / 100 * float64(c.tl.Len())))
		if idx >= c.tl.Len() {
			idx = c.tl.Len() - 1
		}
		if idx < 0 {
			idx = 0
		}
		return c.tl.At(idx).ID
	}

	pos := trace.Time(t)
	for _, ev := range c.tl.Events() {
		if ev.Contains(pos) {
			return ev.ID
		}
	}
	return current
}
