package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox/internal/trace"
)

// openTestStore creates a store backed by a throwaway database file.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "agentbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func timePtr(v float64) *trace.Time {
	t := trace.Time(v)
	return &t
}

// fixtureSession builds a small but fully populated session document
// anchored at the given epoch-ms start.
func fixtureSession(id string, start float64) *trace.Session {
	return &trace.Session{
		ID:          id,
		Name:        "checkout-agent",
		Description: "demo run",
		Start:       trace.Time(start),
		End:         timePtr(start + 5000),
		Status:      trace.StatusSuccess,
		RootEventID: id + "-root",
		Framework:   "langchain",
		SDKVersion:  "0.3.1",
		Metadata:    map[string]any{"env": "test"},
		Events: []trace.Event{
			{
				ID: id + "-root", SessionID: id,
				Type: trace.EventSpan, Name: "agent-run", Status: trace.StatusSuccess,
				Start: trace.Time(start), End: timePtr(start + 5000),
			},
			{
				ID: id + "-llm", SessionID: id, ParentID: id + "-root",
				Type: trace.EventLLMCall, Name: "generate-plan", Status: trace.StatusSuccess,
				Start: trace.Time(start + 100), End: timePtr(start + 1200),
				Model: "gpt-4", Provider: "openai",
				Tokens: &trace.TokenUsage{Prompt: 120, Completion: 80, Total: 200},
			},
			{
				ID: id + "-tool", SessionID: id, ParentID: id + "-root",
				Type: trace.EventToolCall, Name: "search-web", Status: trace.StatusSuccess,
				Start: trace.Time(start + 1300), End: timePtr(start + 2400),
				ToolName: "search", Args: map[string]any{"query": "weather"},
				Result: "overcast, 14C",
			},
		},
		Snapshots: []trace.Snapshot{
			{
				ID: id + "-snap", SessionID: id, EventID: id + "-llm",
				Timestamp: trace.Time(start + 1200),
				State:     json.RawMessage(`{"step":1}`),
				Restorable: true, CheckpointName: "after-plan",
			},
		},
	}
}
