// Package timeline flattens a session's event tree into the ordered
// event sequence and resolved bounds that playback operates on.
//
// Ingest never mutates the session it reads. Malformed input (cyclic
// trees, unparsable timestamps) degrades to a partial but usable
// timeline, with each anomaly logged.
package timeline

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/agentbox/agentbox/internal/trace"
)

// fallbackWindowMS widens a session that carries no usable end bound:
// the timeline becomes [start, start+1s].
const fallbackWindowMS = 1000

// Timeline is the playback view of one session: every event of the
// tree in chronological order, plus the resolved session bounds.
//
// Thread-safety: a Timeline is immutable once built and may be shared
// across goroutines without locking.
type Timeline struct {
	events   []*trace.Event
	index    map[string]int
	start    float64
	end      float64
	duration float64
}

// Build ingests one session. The tree decides which events take part;
// events are sorted by start ascending with ties keeping traversal
// order, and events with unparsable starts sink to the end of the
// sequence.
func Build(s *trace.Session, root *trace.Node) *Timeline {
	flat := flatten(s.ID, root)

	var valid, invalid []*trace.Event
	for _, ev := range flat {
		if ev.Start.Valid() {
			valid = append(valid, ev)
			continue
		}
		slog.Warn("event start unparsable, moved to end of sequence",
			"session_id", s.ID,
			"event_id", ev.ID,
		)
		invalid = append(invalid, ev)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Start < valid[j].Start
	})

	events := make([]*trace.Event, 0, len(flat))
	events = append(events, valid...)
	events = append(events, invalid...)

	index := make(map[string]int, len(events))
	for i, ev := range events {
		if _, ok := index[ev.ID]; !ok {
			index[ev.ID] = i
		}
	}

	start, end := resolveBounds(s, valid)
	duration := end - start
	if duration < 1 {
		// Floor keeps every later division well defined, including
		// for instantaneous and sub-millisecond sessions.
		duration = 1
	}

	return &Timeline{
		events:   events,
		index:    index,
		start:    start,
		end:      end,
		duration: duration,
	}
}

// Len returns the number of events in the ordered sequence.
func (t *Timeline) Len() int { return len(t.events) }

// At returns the event at sequence position i.
func (t *Timeline) At(i int) *trace.Event { return t.events[i] }

// Events returns the ordered sequence. Callers must treat the slice
// as read-only.
func (t *Timeline) Events() []*trace.Event { return t.events }

// Index returns the sequence position of the event with the given id.
func (t *Timeline) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Start returns the resolved session start in epoch milliseconds.
func (t *Timeline) Start() float64 { return t.start }

// End returns the resolved session end in epoch milliseconds.
func (t *Timeline) End() float64 { return t.end }

// Duration returns the resolved session extent in milliseconds,
// always at least 1.
func (t *Timeline) Duration() float64 { return t.duration }

// flatten walks the tree in pre-order with an explicit stack. A
// visited-id set guards against cycles and shared subtrees: the second
// encounter of an id is skipped without descending, so the walk always
// terminates and each event appears at most once.
func flatten(sessionID string, root *trace.Node) []*trace.Event {
	var out []*trace.Event
	visited := make(map[string]bool)

	stack := []*trace.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if n.Event != nil {
			if visited[n.Event.ID] {
				slog.Warn("event repeated in tree, skipping branch",
					"session_id", sessionID,
					"event_id", n.Event.ID,
				)
				continue
			}
			visited[n.Event.ID] = true
			out = append(out, n.Event)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// resolveBounds produces finite [start, end] for the session.
//
// End falls through a chain: declared session end, then the last
// sequence event's end, then that event's start, then start plus the
// fallback window. A start that never resolves takes the window off
// the end bound, or the current wall clock as the last resort.
func resolveBounds(s *trace.Session, sorted []*trace.Event) (start, end float64) {
	start = float64(s.Start)

	end = math.NaN()
	if s.End != nil && s.End.Valid() {
		end = float64(*s.End)
	}
	if !isFinite(end) && len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		end = float64(last.EndOrStart())
	}
	if !isFinite(end) && isFinite(start) {
		end = start + fallbackWindowMS
	}

	if !isFinite(start) {
		if isFinite(end) {
			start = end - fallbackWindowMS
		} else {
			start = float64(trace.FromWall(time.Now()))
		}
		slog.Warn("session start unparsable, using fallback bound",
			"session_id", s.ID,
			"start", start,
		)
	}
	if !isFinite(end) {
		end = start + fallbackWindowMS
	}
	return start, end
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
