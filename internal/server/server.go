// Package server exposes the trace archive over a small REST API for
// the replay frontend: session listings, full documents, event trees,
// timelines, graph layouts, and archive downloads.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentbox/agentbox/internal/store"
)

// version is reported by the health endpoint.
const version = "0.1.0"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server serves the archive HTTP API.
type Server struct {
	store      *store.Store
	httpServer *http.Server
}

// New builds a server bound to addr, reading from st.
func New(addr string, st *store.Store) *Server {
	s := &Server{store: st}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the route table. Tests drive it directly through
// httptest without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the HTTP server until the context ends, then
// shuts down gracefully, draining in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /api/sessions/{id}/tree", s.handleGetTree)
	mux.HandleFunc("GET /api/sessions/{id}/snapshots", s.handleGetSnapshots)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExport)
	mux.HandleFunc("GET /api/sessions/{id}/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/sessions/{id}/graph", s.handleGraph)
	mux.HandleFunc("POST /api/sessions/{id}/takeover", s.handleTakeover)
	return withCORS(mux)
}

// withCORS applies the permissive policy the frontend dev server
// relies on and answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
