package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox/internal/trace"
)

func timePtr(v float64) *trace.Time {
	t := trace.Time(v)
	return &t
}

func ids(tl *Timeline) []string {
	out := make([]string, 0, tl.Len())
	for _, ev := range tl.Events() {
		out = append(out, ev.ID)
	}
	return out
}

func sessionOf(events ...trace.Event) *trace.Session {
	return &trace.Session{ID: "sess-1", Start: 0, Events: events}
}

func TestBuild_SortsByStartAscending(t *testing.T) {
	s := sessionOf(
		trace.Event{ID: "c", Start: 30},
		trace.Event{ID: "a", Start: 10},
		trace.Event{ID: "b", Start: 20},
	)
	tl := Build(s, trace.BuildTree(s))

	assert.Equal(t, []string{"a", "b", "c"}, ids(tl))
}

func TestBuild_TiesKeepTraversalOrder(t *testing.T) {
	// Equal starts must preserve the pre-order position, so repeated
	// ingests of the same tree give identical sequences.
	s := &trace.Session{
		ID:          "sess-1",
		Start:       0,
		RootEventID: "root",
		Events: []trace.Event{
			{ID: "root", Start: 0},
			{ID: "first", ParentID: "root", Start: 10},
			{ID: "second", ParentID: "root", Start: 10},
			{ID: "third", ParentID: "second", Start: 10},
		},
	}
	tl := Build(s, trace.BuildTree(s))

	assert.Equal(t, []string{"root", "first", "second", "third"}, ids(tl))
}

func TestBuild_UnparsableStartsSinkToEnd(t *testing.T) {
	s := sessionOf(
		trace.Event{ID: "bad-1", Start: trace.Invalid},
		trace.Event{ID: "b", Start: 20},
		trace.Event{ID: "bad-2", Start: trace.Invalid},
		trace.Event{ID: "a", Start: 10},
	)
	tl := Build(s, trace.BuildTree(s))

	assert.Equal(t, []string{"a", "b", "bad-1", "bad-2"}, ids(tl),
		"unparsable events keep their relative order at the tail")
}

func TestBuild_FlattenIsPreOrder(t *testing.T) {
	s := &trace.Session{
		ID:          "sess-1",
		Start:       0,
		RootEventID: "root",
		Events: []trace.Event{
			{ID: "root", Start: 0},
			{ID: "a", ParentID: "root", Start: 1},
			{ID: "a1", ParentID: "a", Start: 2},
			{ID: "a2", ParentID: "a", Start: 3},
			{ID: "b", ParentID: "root", Start: 4},
		},
	}
	tl := Build(s, trace.BuildTree(s))

	// Starts already follow pre-order here, so the sorted sequence
	// equals the traversal.
	assert.Equal(t, []string{"root", "a", "a1", "a2", "b"}, ids(tl))
}

func TestBuild_CyclicTreeTerminates(t *testing.T) {
	evA := &trace.Event{ID: "a", Start: 0}
	evB := &trace.Event{ID: "b", Start: 1}
	na := &trace.Node{Event: evA}
	nb := &trace.Node{Event: evB}
	na.Children = []*trace.Node{nb}
	nb.Children = []*trace.Node{na} // malformed: child points back

	s := &trace.Session{ID: "sess-1", Start: 0}
	tl := Build(s, &trace.Node{Children: []*trace.Node{na}})

	assert.Equal(t, []string{"a", "b"}, ids(tl), "each event appears exactly once")
}

func TestBuild_SharedSubtreeAppearsOnce(t *testing.T) {
	shared := &trace.Node{Event: &trace.Event{ID: "shared", Start: 5}}
	root := &trace.Node{Children: []*trace.Node{
		{Event: &trace.Event{ID: "a", Start: 0}, Children: []*trace.Node{shared}},
		{Event: &trace.Event{ID: "b", Start: 1}, Children: []*trace.Node{shared}},
	}}

	tl := Build(&trace.Session{ID: "sess-1", Start: 0}, root)
	assert.Equal(t, []string{"a", "b", "shared"}, ids(tl))
}

func TestBuild_Index(t *testing.T) {
	s := sessionOf(
		trace.Event{ID: "a", Start: 10},
		trace.Event{ID: "b", Start: 20},
	)
	tl := Build(s, trace.BuildTree(s))

	i, ok := tl.Index("b")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = tl.Index("missing")
	assert.False(t, ok)
}

func TestBuild_Bounds_DeclaredEnd(t *testing.T) {
	s := sessionOf(trace.Event{ID: "a", Start: 100, End: timePtr(200)})
	s.Start = 100
	s.End = timePtr(600)

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 100.0, tl.Start())
	assert.Equal(t, 600.0, tl.End())
	assert.Equal(t, 500.0, tl.Duration())
}

func TestBuild_Bounds_LastEventEnd(t *testing.T) {
	s := sessionOf(
		trace.Event{ID: "a", Start: 0, End: timePtr(50)},
		trace.Event{ID: "b", Start: 10, End: timePtr(90)},
	)

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 90.0, tl.End(), "missing session end falls back to last event end")
}

func TestBuild_Bounds_LastEventStart(t *testing.T) {
	s := sessionOf(
		trace.Event{ID: "a", Start: 0, End: timePtr(50)},
		trace.Event{ID: "b", Start: 75},
	)

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 75.0, tl.End(), "open last event falls back to its start")
}

func TestBuild_Bounds_FallbackWindow(t *testing.T) {
	s := &trace.Session{ID: "sess-1", Start: 40}

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 40.0, tl.Start())
	assert.Equal(t, 1040.0, tl.End(), "empty session gets the one-second window")
	assert.Equal(t, 1000.0, tl.Duration())
}

func TestBuild_Bounds_InvalidStartTakesWindowOffEnd(t *testing.T) {
	s := sessionOf(trace.Event{ID: "a", Start: 500, End: timePtr(900)})
	s.Start = trace.Invalid

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 900.0, tl.End())
	assert.Equal(t, -100.0, tl.Start())
	assert.Equal(t, 1000.0, tl.Duration())
}

func TestBuild_Bounds_NothingValid(t *testing.T) {
	s := &trace.Session{ID: "sess-1", Start: trace.Invalid}

	tl := Build(s, trace.BuildTree(s))
	assert.True(t, tl.Start() > 0, "wall clock fallback")
	assert.Equal(t, tl.Start()+1000, tl.End())
	assert.Equal(t, 1000.0, tl.Duration())
}

func TestBuild_DurationFloor(t *testing.T) {
	s := sessionOf(trace.Event{ID: "a", Start: 100})
	s.Start = 100
	s.End = timePtr(100)

	tl := Build(s, trace.BuildTree(s))
	assert.Equal(t, 1.0, tl.Duration(), "instantaneous sessions floor to one unit")

	s2 := sessionOf(trace.Event{ID: "a", Start: 0})
	s2.Start = 0
	s2.End = timePtr(0.5)
	tl2 := Build(s2, trace.BuildTree(s2))
	assert.Equal(t, 1.0, tl2.Duration(), "sub-unit sessions floor to one unit")
}

func TestBuild_EmptyTimeline(t *testing.T) {
	s := &trace.Session{ID: "sess-1", Start: 0}
	tl := Build(s, trace.BuildTree(s))

	assert.Zero(t, tl.Len())
	assert.Empty(t, tl.Events())
}
