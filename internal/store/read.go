package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentbox/agentbox/internal/trace"
)

// GetSession loads a full session document: the session row plus its
// events and snapshots. Returns ErrNotFound for unknown ids.
func (s *Store) GetSession(ctx context.Context, id string) (*trace.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, start_ms, end_ms, status,
		       root_event_id, framework, sdk_version, metadata
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if sess.Events, err = s.GetEvents(ctx, id); err != nil {
		return nil, err
	}
	if sess.Snapshots, err = s.GetSnapshots(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns summaries of stored sessions, newest first.
// A limit <= 0 returns everything.
//
// Returns an empty slice (not nil) when the archive is empty.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]trace.Summary, error) {
	query := `
		SELECT s.id, s.name, s.status, s.start_ms, s.end_ms, s.framework,
		       (SELECT COUNT(*) FROM events e WHERE e.session_id = s.id),
		       (SELECT COUNT(*) FROM snapshots sn WHERE sn.session_id = s.id)
		FROM sessions s
		ORDER BY s.start_ms DESC, s.id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []trace.Summary{}
	for rows.Next() {
		var (
			sum     trace.Summary
			startMS sql.NullFloat64
			endMS   sql.NullFloat64
			status  string
		)
		err := rows.Scan(&sum.ID, &sum.Name, &status, &startMS, &endMS,
			&sum.Framework, &sum.EventCount, &sum.SnapshotCount)
		if err != nil {
			return nil, fmt.Errorf("list sessions: scan: %w", err)
		}
		sum.Status = trace.Status(status)
		sum.Start = columnTime(startMS)
		sum.End = columnTimePtr(endMS)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: iterate: %w", err)
	}
	return summaries, nil
}

// GetEvents returns a session's events in their original document
// order. The body column is the source of truth; typed columns only
// index it.
//
// Returns an empty slice (not nil) when the session has no events.
func (s *Store) GetEvents(ctx context.Context, sessionID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("get events: scan: %w", err)
		}
		var ev trace.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("get events: decode: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get events: iterate: %w", err)
	}
	return events, nil
}

// GetSnapshots returns a session's snapshots in timestamp order, with
// binary id order breaking ties deterministically.
//
// Returns an empty slice (not nil) when the session has no snapshots.
func (s *Store) GetSnapshots(ctx context.Context, sessionID string) ([]trace.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM snapshots
		WHERE session_id = ?
		ORDER BY ts_ms ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []trace.Snapshot{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("get snapshots: scan: %w", err)
		}
		var snap trace.Snapshot
		if err := json.Unmarshal(body, &snap); err != nil {
			return nil, fmt.Errorf("get snapshots: decode: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get snapshots: iterate: %w", err)
	}
	return snapshots, nil
}

func scanSession(row *sql.Row) (*trace.Session, error) {
	var (
		sess     trace.Session
		startMS  sql.NullFloat64
		endMS    sql.NullFloat64
		status   string
		metadata string
	)
	err := row.Scan(&sess.ID, &sess.Name, &sess.Description, &startMS, &endMS,
		&status, &sess.RootEventID, &sess.Framework, &sess.SDKVersion, &metadata)
	if err != nil {
		return nil, err
	}

	sess.Status = trace.Status(status)
	sess.Start = columnTime(startMS)
	sess.End = columnTimePtr(endMS)

	var meta map[string]any
	if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
		return nil, fmt.Errorf("session %q: decode metadata: %w", sess.ID, err)
	}
	if len(meta) > 0 {
		sess.Metadata = meta
	}
	return &sess, nil
}

// columnTime converts a nullable REAL back to a timeline position.
// NULL means the original timestamp never parsed; it comes back as
// NaN, not zero.
func columnTime(v sql.NullFloat64) trace.Time {
	if !v.Valid {
		return trace.Invalid
	}
	return trace.Time(v.Float64)
}

func columnTimePtr(v sql.NullFloat64) *trace.Time {
	if !v.Valid {
		return nil
	}
	t := trace.Time(v.Float64)
	return &t
}
