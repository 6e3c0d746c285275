package trace

// EventType classifies what a recorded event represents.
type EventType string

const (
	EventSpan        EventType = "span"
	EventLLMCall     EventType = "llm_call"
	EventToolCall    EventType = "tool_call"
	EventStateChange EventType = "state_change"
	EventError       EventType = "error"
	EventCheckpoint  EventType = "checkpoint"
)

// Status describes the lifecycle state of an event or session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Per-1k-token list prices used for rough cost attribution.
// Display estimates only, not billing data.
const (
	promptCostPer1K     = 0.03
	completionCostPer1K = 0.06
)

// TokenUsage records token counts for a single LLM call.
type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// CostEstimate returns an approximate USD cost for the recorded usage.
func (u TokenUsage) CostEstimate() float64 {
	return (float64(u.Prompt)*promptCostPer1K + float64(u.Completion)*completionCostPer1K) / 1000
}

// Event is a single recorded occurrence inside a session: a span, an
// LLM call, a tool call, a state change, an error, or a checkpoint.
//
// Start is required. End is nil for point-in-time events and for spans
// still open when the session was captured; both are treated as
// zero-length on the timeline.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"trace_id,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"`
	Type      EventType `json:"event_type"`
	Name      string    `json:"name"`
	Status    Status    `json:"status,omitempty"`
	Start     Time      `json:"timestamp"`
	End       *Time     `json:"end_timestamp,omitempty"`

	// LLM call fields.
	Model    string      `json:"model,omitempty"`
	Provider string      `json:"provider,omitempty"`
	Tokens   *TokenUsage `json:"tokens_used,omitempty"`

	// Tool call fields.
	ToolName string         `json:"tool_name,omitempty"`
	Args     map[string]any `json:"arguments,omitempty"`
	Result   any            `json:"result,omitempty"`

	// Error fields.
	ErrorMessage string `json:"error_message,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// Duration returns the event's extent in milliseconds. Events without
// a valid end timestamp, or with end before start, are zero-length.
func (e *Event) Duration() float64 {
	if e.End == nil || !e.End.Valid() || !e.Start.Valid() {
		return 0
	}
	if d := e.End.Sub(e.Start); d > 0 {
		return d
	}
	return 0
}

// EndOrStart returns the event's end when one is recorded and valid,
// otherwise its start. Interval logic treats events without an end as
// instants.
func (e *Event) EndOrStart() Time {
	if e.End != nil && e.End.Valid() {
		return *e.End
	}
	return e.Start
}

// Contains reports whether the timeline position t falls inside the
// event's interval, inclusive at both bounds. Always false when either
// side is NaN.
func (e *Event) Contains(t Time) bool {
	return t >= e.Start && t <= e.EndOrStart()
}
