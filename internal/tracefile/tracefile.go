// Package tracefile reads and writes session archive documents, the
// on-disk interchange format for recorded sessions. One archive is one
// JSON file per session; Decode normalizes names and backfills the
// session id so downstream packages can rely on both.
package tracefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentbox/agentbox/internal/trace"
)

// FileName returns the canonical archive file name for a session id.
func FileName(id string) string {
	return "session_" + id + ".json"
}

// Decode parses a session archive document.
//
// Decoding is lenient about timestamps (garbage parses to the invalid
// marker, never an error); structural checks live in the Validator.
func Decode(data []byte) (*trace.Session, error) {
	var s trace.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}
	normalize(&s)
	return &s, nil
}

// Encode renders a session as an indented archive document.
func Encode(s *trace.Session) ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session document: %w", err)
	}
	return append(b, '\n'), nil
}

// ReadFile reads and decodes one archive file.
func ReadFile(path string) (*trace.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteFile encodes the session into dir under its canonical file name
// and returns the written path. An existing archive for the same
// session is replaced.
func WriteFile(dir string, s *trace.Session) (string, error) {
	data, err := Encode(s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(s.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

// normalize applies the import-edge repairs: NFC display names, the
// owning session id on events and snapshots that omit it, and empty
// collections instead of nil.
func normalize(s *trace.Session) {
	s.Name = trace.NormalizeName(s.Name)
	if s.Events == nil {
		s.Events = []trace.Event{}
	}
	if s.Snapshots == nil {
		s.Snapshots = []trace.Snapshot{}
	}
	for i := range s.Events {
		ev := &s.Events[i]
		ev.Name = trace.NormalizeName(ev.Name)
		if ev.SessionID == "" {
			ev.SessionID = s.ID
		}
	}
	for i := range s.Snapshots {
		sn := &s.Snapshots[i]
		if sn.SessionID == "" {
			sn.SessionID = s.ID
		}
		if len(sn.State) == 0 {
			sn.State = json.RawMessage("{}")
		}
	}
}
