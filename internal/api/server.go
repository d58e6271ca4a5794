// Package api exposes the debug HTTP interface of a grab run.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/metrics"
	"github.com/gkertesz/tvgrab/internal/middleware"
	"github.com/gkertesz/tvgrab/internal/progress"
)

// RunInfo describes the grab run the listener reports on.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Channels  int       `json:"channels"`
	Days      int       `json:"days"`
}

// Server wires the health, status and metrics routes.
type Server struct {
	router  chi.Router
	info    RunInfo
	tracker *progress.Tracker
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The tracker may
// be nil, in which case statusz reports zero counters.
func NewServer(info RunInfo, tracker *progress.Tracker, logger *zap.Logger) *Server {
	s := &Server{
		info:    info,
		tracker: tracker,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Get("/statusz", s.statusz)
	r.Handle("/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The listener only starts once the pipeline is built.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) statusz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, runStatus{
		RunInfo:  s.info,
		Progress: s.tracker.Snapshot(),
	})
}

type runStatus struct {
	RunInfo
	Progress progress.Snapshot `json:"progress"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}
