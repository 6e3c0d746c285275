package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agentbox/agentbox/internal/trace"
)

// SaveSession stores a session and everything it contains. Saving an
// id that already exists replaces the stored document wholesale: the
// session row is updated and its events and snapshots are rewritten.
// The whole operation is one transaction, so readers never observe a
// half-replaced session.
func (s *Store) SaveSession(ctx context.Context, sess *trace.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: begin: %w", err)
	}
	defer tx.Rollback()

	metadata, err := json.Marshal(orEmptyMap(sess.Metadata))
	if err != nil {
		return fmt.Errorf("save session: marshal metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, name, description, start_ms, end_ms, status, root_event_id, framework, sdk_version, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			start_ms = excluded.start_ms,
			end_ms = excluded.end_ms,
			status = excluded.status,
			root_event_id = excluded.root_event_id,
			framework = excluded.framework,
			sdk_version = excluded.sdk_version,
			metadata = excluded.metadata
	`,
		sess.ID,
		sess.Name,
		sess.Description,
		timeColumn(sess.Start),
		timePtrColumn(sess.End),
		string(sess.Status),
		sess.RootEventID,
		sess.Framework,
		sess.SDKVersion,
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("save session: upsert: %w", err)
	}

	// Replace children wholesale; last import wins.
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("save session: clear events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("save session: clear snapshots: %w", err)
	}

	if err := insertEvents(ctx, tx, sess); err != nil {
		return err
	}
	if err := insertSnapshots(ctx, tx, sess); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session: commit: %w", err)
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, sess *trace.Session) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(session_id, id, seq, parent_id, event_type, name, status, start_ms, end_ms, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save session: prepare events: %w", err)
	}
	defer stmt.Close()

	for i := range sess.Events {
		ev := &sess.Events[i]
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("save session: marshal event %q: %w", ev.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			sess.ID,
			ev.ID,
			i,
			ev.ParentID,
			string(ev.Type),
			ev.Name,
			string(ev.Status),
			timeColumn(ev.Start),
			timePtrColumn(ev.End),
			string(body),
		)
		if err != nil {
			return fmt.Errorf("save session: insert event %q: %w", ev.ID, err)
		}
	}
	return nil
}

func insertSnapshots(ctx context.Context, tx *sql.Tx, sess *trace.Session) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots
		(session_id, id, event_id, ts_ms, body)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save session: prepare snapshots: %w", err)
	}
	defer stmt.Close()

	for i := range sess.Snapshots {
		snap := &sess.Snapshots[i]
		body, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("save session: marshal snapshot %q: %w", snap.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			sess.ID,
			snap.ID,
			snap.EventID,
			timeColumn(snap.Timestamp),
			string(body),
		)
		if err != nil {
			return fmt.Errorf("save session: insert snapshot %q: %w", snap.ID, err)
		}
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its events and
// snapshots. Reports whether anything was deleted.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: rows affected: %w", err)
	}
	return n > 0, nil
}

// timeColumn binds a timeline position as REAL, mapping NaN to NULL.
// SQLite has no NaN; NULL round-trips back to NaN on read.
func timeColumn(t trace.Time) any {
	if !t.Valid() {
		return nil
	}
	return float64(t)
}

func timePtrColumn(t *trace.Time) any {
	if t == nil {
		return nil
	}
	return timeColumn(*t)
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
