// Package recorder builds trace sessions in process: a flight recorder
// for agent executions. Spans open and close through an explicit stack
// (the innermost open span is the parent of whatever records next);
// LLM calls, tool calls, state changes, errors and checkpoints attach
// under it. The result of EndSession is a complete Session ready for
// the store, an archive file, or direct ingest.
//
// The recorder only builds; persisting the finished session is the
// caller's concern.
package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbox/agentbox/internal/trace"
)

// sdkVersion is stamped on every recorded session.
const sdkVersion = "0.1.0"

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator substitutes the id source. Tests and the demo seeder
// use SequenceGenerator for reproducible recordings.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) { r.ids = g }
}

// WithNow substitutes the clock. The recorder samples it once per
// recorded instant, so a scripted clock yields exact timelines.
func WithNow(now func() trace.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder captures one session at a time.
//
// Thread-safety: all methods are safe for concurrent use; a single
// mutex guards the session under construction.
type Recorder struct {
	mu      sync.Mutex
	now     func() trace.Time
	ids     IDGenerator
	session *trace.Session
	stack   []string // open span ids, innermost last
}

// New creates a Recorder with wall-clock time and UUIDv7 ids.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		now: func() trace.Time { return trace.FromWall(time.Now()) },
		ids: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartSession begins a new session, completing any session already in
// progress (with success, matching the recorder it replaces). An empty
// name gets a timestamped default. The returned session is live: it
// grows as events are recorded and is sealed by EndSession.
func (r *Recorder) StartSession(name, description string, metadata map[string]any) *trace.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startSessionLocked(name, description, metadata)
}

// Session returns the session under construction, or nil.
func (r *Recorder) Session() *trace.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// EndSession seals and returns the current session, stamping its end
// time and status. Returns nil when no session is in progress.
func (r *Recorder) EndSession(status trace.Status) *trace.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endSessionLocked(status)
}

// BeginSpan opens a span. Until the matching End, every recorded event
// is parented under it.
func (r *Recorder) BeginSpan(name string, metadata map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.appendLocked(trace.Event{
		Type:     trace.EventSpan,
		Name:     trace.NormalizeName(name),
		Status:   trace.StatusRunning,
		Metadata: metadata,
	})
	r.stack = append(r.stack, id)
	return id
}

// BeginLLMCall records the start of a model call.
func (r *Recorder) BeginLLMCall(model, provider string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(trace.Event{
		Type:     trace.EventLLMCall,
		Name:     trace.NormalizeName("LLM: " + model),
		Status:   trace.StatusRunning,
		Model:    model,
		Provider: provider,
	})
}

// BeginToolCall records the start of a tool invocation.
func (r *Recorder) BeginToolCall(tool string, args map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(trace.Event{
		Type:     trace.EventToolCall,
		Name:     trace.NormalizeName("Tool: " + tool),
		Status:   trace.StatusRunning,
		ToolName: tool,
		Args:     args,
	})
}

// End completes the event with the given id: stamps its end time and
// final status, and closes the span stack entry if id is the innermost
// open span. Ending an unknown id is reported and ignored.
func (r *Recorder) End(id string, status trace.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLocked(id, status)
}

// EndLLMCall completes a model call successfully with its token usage.
// A failed call is ended with End(id, StatusError) instead; token
// counts from a failed call are not recorded.
func (r *Recorder) EndLLMCall(id string, tokens trace.TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		if ev := r.session.Event(id); ev != nil {
			ev.Tokens = &tokens
		}
	}
	r.endLocked(id, trace.StatusSuccess)
}

// EndToolCall completes a tool invocation, keeping its result. A
// non-empty errMsg marks it failed and preserves the message instead.
func (r *Recorder) EndToolCall(id string, result any, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := trace.StatusSuccess
	if errMsg != "" {
		status = trace.StatusError
	}
	if r.session != nil {
		if ev := r.session.Event(id); ev != nil {
			if errMsg != "" {
				ev.ErrorMessage = errMsg
			} else {
				ev.Result = result
			}
		}
	}
	r.endLocked(id, status)
}

// RecordLLMCall records an already-completed model call as begun and
// ended at the recording instant.
func (r *Recorder) RecordLLMCall(model, provider string, tokens trace.TokenUsage) string {
	id := r.BeginLLMCall(model, provider)
	r.EndLLMCall(id, tokens)
	return id
}

// RecordToolCall records an already-completed tool invocation.
func (r *Recorder) RecordToolCall(tool string, args map[string]any, result any, errMsg string) string {
	id := r.BeginToolCall(tool, args)
	r.EndToolCall(id, result, errMsg)
	return id
}

// RecordError records a point-in-time error event. The message is kept
// verbatim on the event; name is the short display label.
func (r *Recorder) RecordError(name, message string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(trace.Event{
		Type:         trace.EventError,
		Name:         trace.NormalizeName(name),
		Status:       trace.StatusError,
		ErrorMessage: message,
	})
}

// RecordStateChange records a point-in-time state transition.
func (r *Recorder) RecordStateChange(name string, metadata map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(trace.Event{
		Type:     trace.EventStateChange,
		Name:     trace.NormalizeName(name),
		Status:   trace.StatusSuccess,
		Metadata: metadata,
	})
}

// Checkpoint records a checkpoint event and attaches a restorable
// snapshot of state to it. State must be JSON-serializable; on failure
// nothing is recorded. Returns the checkpoint event id.
func (r *Recorder) Checkpoint(name string, state any, description string) (string, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serialize checkpoint state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	eventID := r.appendLocked(trace.Event{
		Type:   trace.EventCheckpoint,
		Name:   trace.NormalizeName(name),
		Status: trace.StatusSuccess,
	})
	ev := r.session.Event(eventID)
	r.session.Snapshots = append(r.session.Snapshots, trace.Snapshot{
		ID:             r.ids.Generate(),
		SessionID:      r.session.ID,
		EventID:        eventID,
		Timestamp:      ev.Start,
		State:          blob,
		StateType:      fmt.Sprintf("%T", state),
		Restorable:     true,
		CheckpointName: name,
		Description:    description,
	})
	return eventID, nil
}

func (r *Recorder) startSessionLocked(name, description string, metadata map[string]any) *trace.Session {
	if r.session != nil {
		r.endSessionLocked(trace.StatusSuccess)
	}

	at := r.now()
	if name == "" {
		name = "trace_" + at.Wall().Format("20060102_150405")
	}
	s := &trace.Session{
		ID:          r.ids.Generate(),
		Name:        trace.NormalizeName(name),
		Description: description,
		Start:       at,
		Status:      trace.StatusRunning,
		SDKVersion:  sdkVersion,
		Metadata:    metadata,
		Events:      []trace.Event{},
		Snapshots:   []trace.Snapshot{},
	}
	r.session = s
	r.stack = r.stack[:0]
	return s
}

func (r *Recorder) endSessionLocked(status trace.Status) *trace.Session {
	if r.session == nil {
		return nil
	}
	s := r.session
	at := r.now()
	s.End = &at
	s.Status = status
	r.session = nil
	r.stack = r.stack[:0]
	return s
}

// appendLocked stamps id, owner, parent and start onto the event and
// adds it to the session, starting one implicitly if needed. The first
// parentless event becomes the session root.
func (r *Recorder) appendLocked(ev trace.Event) string {
	if r.session == nil {
		r.startSessionLocked("", "", nil)
	}

	ev.ID = r.ids.Generate()
	ev.SessionID = r.session.ID
	ev.Start = r.now()
	if len(r.stack) > 0 {
		ev.ParentID = r.stack[len(r.stack)-1]
	}

	r.session.Events = append(r.session.Events, ev)
	if r.session.RootEventID == "" && ev.ParentID == "" {
		r.session.RootEventID = ev.ID
	}
	return ev.ID
}

func (r *Recorder) endLocked(id string, status trace.Status) {
	if r.session == nil {
		return
	}
	ev := r.session.Event(id)
	if ev == nil {
		slog.Warn("completing unknown event", "event_id", id)
		return
	}

	at := r.now()
	ev.End = &at
	ev.Status = status

	if n := len(r.stack); n > 0 && r.stack[n-1] == id {
		r.stack = r.stack[:n-1]
	}
}
