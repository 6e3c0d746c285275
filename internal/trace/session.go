package trace

import "encoding/json"

// Session is one recorded agent run: its metadata, the full event log,
// and any state snapshots captured along the way.
type Session struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Start       Time           `json:"start_time"`
	End         *Time          `json:"end_time,omitempty"`
	Status      Status         `json:"status"`
	RootEventID string         `json:"root_event_id,omitempty"`
	Framework   string         `json:"framework,omitempty"`
	SDKVersion  string         `json:"sdk_version,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Events      []Event        `json:"events"`
	Snapshots   []Snapshot     `json:"snapshots,omitempty"`
}

// Event returns the session event with the given id, or nil.
func (s *Session) Event(id string) *Event {
	for i := range s.Events {
		if s.Events[i].ID == id {
			return &s.Events[i]
		}
	}
	return nil
}

// Snapshot captures restorable agent state at a checkpoint.
//
// State is kept as raw JSON: the replay core never interprets agent
// state, it only stores and serves it.
type Snapshot struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"trace_id,omitempty"`
	EventID        string          `json:"event_id"`
	Timestamp      Time            `json:"timestamp"`
	State          json.RawMessage `json:"state"`
	StateType      string          `json:"state_type,omitempty"`
	Restorable     bool            `json:"restorable"`
	CheckpointName string          `json:"checkpoint_name,omitempty"`
	Description    string          `json:"description,omitempty"`
}

// Summary is the listing view of a stored session.
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Status        Status `json:"status"`
	Start         Time   `json:"start_time"`
	End           *Time  `json:"end_time,omitempty"`
	EventCount    int    `json:"event_count"`
	SnapshotCount int    `json:"snapshot_count"`
	Framework     string `json:"framework,omitempty"`
}
