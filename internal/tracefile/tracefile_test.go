package tracefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox/internal/trace"
)

func timePtr(v float64) *trace.Time {
	t := trace.Time(v)
	return &t
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "session_abc.json", FileName("abc"))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	want := &trace.Session{
		ID:     "sess-1",
		Name:   "checkout agent",
		Start:  1_000_000,
		End:    timePtr(1_005_000),
		Status: trace.StatusSuccess,
		Events: []trace.Event{
			{
				ID:        "evt-1",
				SessionID: "sess-1",
				Type:      trace.EventSpan,
				Name:      "agent-run",
				Status:    trace.StatusSuccess,
				Start:     1_000_000,
				End:       timePtr(1_005_000),
			},
		},
		Snapshots: []trace.Snapshot{},
	}

	data, err := Encode(want)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1], "archives end with a newline")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_NormalizesNames(t *testing.T) {
	// "café" is the decomposed spelling of "café".
	doc := `{
		"id": "sess-1",
		"name": "café agent",
		"start_time": 1000,
		"status": "success",
		"events": [
			{"id": "evt-1", "event_type": "span", "name": "café", "timestamp": 1000}
		]
	}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "café agent", s.Name)
	assert.Equal(t, "café", s.Events[0].Name)
}

func TestDecode_BackfillsSessionID(t *testing.T) {
	doc := `{
		"id": "sess-1",
		"name": "n",
		"start_time": 1000,
		"status": "running",
		"events": [
			{"id": "evt-1", "event_type": "span", "name": "a", "timestamp": 1000}
		],
		"snapshots": [
			{"id": "snap-1", "event_id": "evt-1", "timestamp": 1000, "state": {"k": 1}}
		]
	}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.Events[0].SessionID)
	assert.Equal(t, "sess-1", s.Snapshots[0].SessionID)
}

func TestDecode_EmptyCollections(t *testing.T) {
	doc := `{"id": "sess-1", "name": "n", "start_time": 1000, "status": "running", "events": []}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.NotNil(t, s.Events)
	assert.Empty(t, s.Events)
	assert.NotNil(t, s.Snapshots)
	assert.Empty(t, s.Snapshots)
}

func TestDecode_MissingSnapshotStateDefaultsToObject(t *testing.T) {
	doc := `{
		"id": "sess-1",
		"name": "n",
		"start_time": 1000,
		"status": "running",
		"events": [],
		"snapshots": [{"id": "snap-1", "event_id": "evt-1", "timestamp": 1000}]
	}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("{}"), s.Snapshots[0].State)
}

func TestDecode_GarbageTimestampIsNotAnError(t *testing.T) {
	doc := `{
		"id": "sess-1",
		"name": "n",
		"start_time": "not a time",
		"status": "running",
		"events": [
			{"id": "evt-1", "event_type": "span", "name": "a", "timestamp": "also not a time"}
		]
	}`

	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.False(t, s.Start.Valid())
	assert.False(t, s.Events[0].Start.Valid())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"id":`))
	require.Error(t, err)
}

func TestWriteFile_ReadFile(t *testing.T) {
	dir := t.TempDir()
	s := &trace.Session{
		ID:        "sess-9",
		Name:      "roundtrip",
		Start:     2_000_000,
		Status:    trace.StatusSuccess,
		Events:    []trace.Event{},
		Snapshots: []trace.Snapshot{},
	}

	path, err := WriteFile(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session_sess-9.json"), path)

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "session_nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
