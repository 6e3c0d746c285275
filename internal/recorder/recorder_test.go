package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox/internal/trace"
)

// scriptClock is a hand-advanced clock for exact recorded timestamps.
type scriptClock struct {
	at trace.Time
}

func (c *scriptClock) now() trace.Time { return c.at }

func (c *scriptClock) advance(ms float64) { c.at = c.at.Add(ms) }

func newTestRecorder() (*Recorder, *scriptClock) {
	clk := &scriptClock{at: trace.FromWall(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))}
	rec := New(
		WithIDGenerator(NewSequenceGenerator("evt")),
		WithNow(clk.now),
	)
	return rec, clk
}

func TestRecorder_StartSession(t *testing.T) {
	rec, clk := newTestRecorder()

	s := rec.StartSession("checkout", "demo run", map[string]any{"env": "test"})
	require.NotNil(t, s)
	assert.Equal(t, "evt-0001", s.ID)
	assert.Equal(t, "checkout", s.Name)
	assert.Equal(t, "demo run", s.Description)
	assert.Equal(t, trace.StatusRunning, s.Status)
	assert.Equal(t, clk.at, s.Start)
	assert.Nil(t, s.End)
	assert.Equal(t, "0.1.0", s.SDKVersion)
	assert.NotNil(t, s.Events)
	assert.Empty(t, s.Events)
	assert.NotNil(t, s.Snapshots)
	assert.Same(t, s, rec.Session())
}

func TestRecorder_StartSession_DefaultName(t *testing.T) {
	rec, _ := newTestRecorder()

	s := rec.StartSession("", "", nil)
	assert.Equal(t, "trace_20250301_100000", s.Name)
}

func TestRecorder_StartSession_EndsPrevious(t *testing.T) {
	rec, clk := newTestRecorder()

	first := rec.StartSession("first", "", nil)
	clk.advance(500)
	second := rec.StartSession("second", "", nil)

	require.NotNil(t, first.End)
	assert.Equal(t, trace.StatusSuccess, first.Status)
	assert.Equal(t, first.Start.Add(500), *first.End)
	assert.Same(t, second, rec.Session())
}

func TestRecorder_EndSession(t *testing.T) {
	rec, clk := newTestRecorder()

	rec.StartSession("run", "", nil)
	clk.advance(2500)
	s := rec.EndSession(trace.StatusError)

	require.NotNil(t, s)
	assert.Equal(t, trace.StatusError, s.Status)
	require.NotNil(t, s.End)
	assert.Equal(t, 2500.0, s.End.Sub(s.Start))
	assert.Nil(t, rec.Session())
	assert.Nil(t, rec.EndSession(trace.StatusSuccess))
}

func TestRecorder_SpanNesting(t *testing.T) {
	rec, clk := newTestRecorder()
	rec.StartSession("run", "", nil)

	outer := rec.BeginSpan("outer", nil)
	clk.advance(10)
	inner := rec.BeginSpan("inner", nil)
	clk.advance(10)
	call := rec.RecordLLMCall("gpt-4", "openai", trace.TokenUsage{Total: 5})
	rec.End(inner, trace.StatusSuccess)
	clk.advance(10)
	late := rec.RecordToolCall("lookup", nil, nil, "")

	s := rec.Session()
	assert.Equal(t, "", s.Event(outer).ParentID)
	assert.Equal(t, outer, s.Event(inner).ParentID)
	assert.Equal(t, inner, s.Event(call).ParentID)
	assert.Equal(t, outer, s.Event(late).ParentID, "closed spans no longer parent new events")
	assert.Equal(t, outer, s.RootEventID)
}

func TestRecorder_RootEventID_FirstParentlessWins(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	first := rec.BeginSpan("a", nil)
	rec.End(first, trace.StatusSuccess)
	rec.BeginSpan("b", nil)

	assert.Equal(t, first, rec.Session().RootEventID)
}

func TestRecorder_BeginAutoStartsSession(t *testing.T) {
	rec, _ := newTestRecorder()

	id := rec.BeginSpan("implicit", nil)
	s := rec.Session()
	require.NotNil(t, s)
	assert.Equal(t, id, s.RootEventID)
	assert.Equal(t, "trace_20250301_100000", s.Name)
}

func TestRecorder_SpanLifecycle(t *testing.T) {
	rec, clk := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.BeginSpan("work", map[string]any{"k": "v"})
	clk.advance(250)
	rec.End(id, trace.StatusSuccess)

	ev := rec.Session().Event(id)
	assert.Equal(t, trace.EventSpan, ev.Type)
	assert.Equal(t, trace.StatusSuccess, ev.Status)
	assert.Equal(t, 250.0, ev.Duration())
	assert.Equal(t, map[string]any{"k": "v"}, ev.Metadata)
}

func TestRecorder_LLMCall(t *testing.T) {
	rec, clk := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.BeginLLMCall("gpt-4", "openai")
	clk.advance(1200)
	rec.EndLLMCall(id, trace.TokenUsage{Prompt: 100, Completion: 50, Total: 150})

	ev := rec.Session().Event(id)
	assert.Equal(t, trace.EventLLMCall, ev.Type)
	assert.Equal(t, "LLM: gpt-4", ev.Name)
	assert.Equal(t, "gpt-4", ev.Model)
	assert.Equal(t, "openai", ev.Provider)
	assert.Equal(t, trace.StatusSuccess, ev.Status)
	assert.Equal(t, 1200.0, ev.Duration())
	require.NotNil(t, ev.Tokens)
	assert.Equal(t, 150, ev.Tokens.Total)
}

func TestRecorder_ToolCall_Error(t *testing.T) {
	rec, clk := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.BeginToolCall("search", map[string]any{"q": "espresso"})
	clk.advance(300)
	rec.EndToolCall(id, nil, "upstream 503")

	ev := rec.Session().Event(id)
	assert.Equal(t, trace.EventToolCall, ev.Type)
	assert.Equal(t, "Tool: search", ev.Name)
	assert.Equal(t, "search", ev.ToolName)
	assert.Equal(t, trace.StatusError, ev.Status)
	assert.Equal(t, "upstream 503", ev.ErrorMessage)
	assert.Nil(t, ev.Result)
}

func TestRecorder_ToolCall_Result(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.BeginToolCall("price_lookup", map[string]any{"sku": "EM-200"})
	rec.EndToolCall(id, 199.0, "")

	ev := rec.Session().Event(id)
	assert.Equal(t, trace.StatusSuccess, ev.Status)
	assert.Equal(t, 199.0, ev.Result)
	assert.Empty(t, ev.ErrorMessage)
}

func TestRecorder_OneShotRecordsArePointEvents(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.RecordToolCall("noop", nil, nil, "")
	ev := rec.Session().Event(id)
	require.NotNil(t, ev.End)
	assert.Equal(t, 0.0, ev.Duration())
	assert.Equal(t, trace.StatusSuccess, ev.Status)
}

func TestRecorder_RecordError(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.RecordError("rate-limited", "429 from provider")
	ev := rec.Session().Event(id)
	assert.Equal(t, trace.EventError, ev.Type)
	assert.Equal(t, trace.StatusError, ev.Status)
	assert.Equal(t, "429 from provider", ev.ErrorMessage)
	assert.Nil(t, ev.End)
}

func TestRecorder_RecordStateChange(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	id := rec.RecordStateChange("phase", map[string]any{"to": "review"})
	ev := rec.Session().Event(id)
	assert.Equal(t, trace.EventStateChange, ev.Type)
	assert.Equal(t, trace.StatusSuccess, ev.Status)
	assert.Equal(t, map[string]any{"to": "review"}, ev.Metadata)
}

func TestRecorder_Checkpoint(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)
	span := rec.BeginSpan("work", nil)

	id, err := rec.Checkpoint("midpoint", map[string]any{"step": 3}, "halfway there")
	require.NoError(t, err)

	s := rec.Session()
	ev := s.Event(id)
	require.NotNil(t, ev)
	assert.Equal(t, trace.EventCheckpoint, ev.Type)
	assert.Equal(t, span, ev.ParentID)

	require.Len(t, s.Snapshots, 1)
	snap := s.Snapshots[0]
	assert.Equal(t, id, snap.EventID)
	assert.Equal(t, ev.Start, snap.Timestamp)
	assert.JSONEq(t, `{"step": 3}`, string(snap.State))
	assert.True(t, snap.Restorable)
	assert.Equal(t, "midpoint", snap.CheckpointName)
	assert.Equal(t, "halfway there", snap.Description)
}

func TestRecorder_Checkpoint_UnserializableState(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	_, err := rec.Checkpoint("bad", map[string]any{"ch": make(chan int)}, "")
	require.Error(t, err)

	s := rec.Session()
	assert.Empty(t, s.Events, "nothing recorded when state cannot serialize")
	assert.Empty(t, s.Snapshots)
}

func TestRecorder_EndUnknownID(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)
	span := rec.BeginSpan("work", nil)

	rec.End("nope", trace.StatusSuccess)

	child := rec.BeginSpan("child", nil)
	assert.Equal(t, span, rec.Session().Event(child).ParentID, "stack untouched by unknown id")
}

func TestRecorder_EndOutOfOrderKeepsStack(t *testing.T) {
	rec, _ := newTestRecorder()
	rec.StartSession("run", "", nil)

	outer := rec.BeginSpan("outer", nil)
	inner := rec.BeginSpan("inner", nil)

	// Ending the outer span while the inner one is still open
	// completes it but leaves the stack alone.
	rec.End(outer, trace.StatusSuccess)

	next := rec.BeginSpan("next", nil)
	s := rec.Session()
	require.NotNil(t, s.Event(outer).End)
	assert.Equal(t, inner, s.Event(next).ParentID)
}

func TestRecorder_NormalizesNames(t *testing.T) {
	rec, _ := newTestRecorder()

	s := rec.StartSession("café", "", nil)
	assert.Equal(t, "café", s.Name)

	id := rec.BeginSpan("café-span", nil)
	assert.Equal(t, "café-span", s.Event(id).Name)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("x")
	assert.Equal(t, "x-0001", g.Generate())
	assert.Equal(t, "x-0002", g.Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
