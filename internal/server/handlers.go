package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/agentbox/agentbox/internal/graph"
	"github.com/agentbox/agentbox/internal/store"
	"github.com/agentbox/agentbox/internal/timeline"
	"github.com/agentbox/agentbox/internal/trace"
	"github.com/agentbox/agentbox/internal/tracefile"
)

// defaultListLimit caps session listings when the client sends none.
const defaultListLimit = 100

type errorResponse struct {
	Error string `json:"error"`
}

// treeNode is the nested tree shape the frontend renders. A synthetic
// root carries no event, only children.
type treeNode struct {
	Event    *trace.Event `json:"event,omitempty"`
	Children []treeNode   `json:"children"`
}

type timelineResponse struct {
	SessionID  string         `json:"session_id"`
	StartMS    float64        `json:"start_ms"`
	EndMS      float64        `json:"end_ms"`
	DurationMS float64        `json:"duration_ms"`
	EventCount int            `json:"event_count"`
	Events     []*trace.Event `json:"events"`
}

type takeoverRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

// takeoverResponse hands an operator the captured state at a
// checkpoint so the agent can be resumed from there.
type takeoverResponse struct {
	SessionID      string          `json:"session_id"`
	SnapshotID     string          `json:"snapshot_id"`
	State          json.RawMessage `json:"state"`
	Restorable     bool            `json:"restorable"`
	CheckpointName string          `json:"checkpoint_name,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	summaries, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.store.DeleteSession(r.Context(), id)
	if err != nil {
		slog.Error("delete session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleGetEvents serves the event log in its recorded document order.
// The timeline endpoint serves the chronologically resolved view.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Events)
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	root := trace.BuildTree(sess)
	writeJSON(w, http.StatusOK, toTreeNode(root, make(map[*trace.Node]bool)))
}

func (s *Server) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	snapshots := sess.Snapshots
	if snapshots == nil {
		snapshots = []trace.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	data, err := tracefile.Encode(sess)
	if err != nil {
		slog.Error("encode session failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tracefile.FileName(sess.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	tl := timeline.Build(sess, trace.BuildTree(sess))
	events := tl.Events()
	if events == nil {
		events = []*trace.Event{}
	}
	writeJSON(w, http.StatusOK, timelineResponse{
		SessionID:  sess.ID,
		StartMS:    tl.Start(),
		EndMS:      tl.End(),
		DurationMS: tl.Duration(),
		EventCount: tl.Len(),
		Events:     events,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	layout := graph.Build(trace.BuildTree(sess), r.URL.Query().Get("selected"))
	if layout.Nodes == nil {
		layout.Nodes = []graph.Node{}
	}
	if layout.Edges == nil {
		layout.Edges = []graph.Edge{}
	}
	writeJSON(w, http.StatusOK, layout)
}

func (s *Server) handleTakeover(w http.ResponseWriter, r *http.Request) {
	var req takeoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SnapshotID == "" {
		writeError(w, http.StatusBadRequest, "snapshot_id is required")
		return
	}

	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	for i := range sess.Snapshots {
		snap := &sess.Snapshots[i]
		if snap.ID != req.SnapshotID {
			continue
		}
		writeJSON(w, http.StatusOK, takeoverResponse{
			SessionID:      sess.ID,
			SnapshotID:     snap.ID,
			State:          snap.State,
			Restorable:     snap.Restorable,
			CheckpointName: snap.CheckpointName,
		})
		return
	}
	writeError(w, http.StatusNotFound, "snapshot not found")
}

// loadSession resolves the {id} path segment to a stored session. On
// failure it writes the error response and reports false.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*trace.Session, bool) {
	id := r.PathValue("id")
	sess, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		slog.Error("load session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return sess, true
}

// toTreeNode converts the internal tree to its wire shape. The seen
// set stops descent into nodes already emitted, so child links that
// loop (rescued parent cycles) cannot recurse forever.
func toTreeNode(n *trace.Node, seen map[*trace.Node]bool) treeNode {
	seen[n] = true
	out := treeNode{Event: n.Event, Children: make([]treeNode, 0, len(n.Children))}
	for _, child := range n.Children {
		if seen[child] {
			continue
		}
		out.Children = append(out.Children, toTreeNode(child, seen))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
