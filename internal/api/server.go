// Package api exposes the snapshot trigger and the rankings read endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/pipeline"
	"ffrankings/ingestion/internal/rankings"
)

// Reader serves ranking queries
type Reader interface {
	Current(ctx context.Context, f rankings.Filter) ([]models.RankingRow, error)
	History(ctx context.Context, playerID string) ([]models.HistoryPoint, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures the API server
type Options struct {
	CronSecret  string
	SeasonStart time.Time
	Now         func() time.Time // defaults to time.Now
}

// Server wires HTTP routes for the rankings API
type Server struct {
	runner pipeline.Runner
	reader Reader
	health HealthChecker
	opts   Options
}

// NewServer creates a new API server. health may be nil.
func NewServer(runner pipeline.Runner, reader Reader, health HealthChecker, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		runner: runner,
		reader: reader,
		health: health,
		opts:   opts,
	}
}

// Register attaches all HTTP routes to mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", MetricsMiddleware(s.handleHealth, "health"))
	mux.HandleFunc("POST /api/cron/snapshot", MetricsMiddleware(s.requireCronSecret(s.handleSnapshot), "snapshot"))
	mux.HandleFunc("GET /api/players", MetricsMiddleware(s.handlePlayers, "players"))
	mux.HandleFunc("GET /api/players/{id}/history", MetricsMiddleware(s.handleHistory, "history"))
}

// Handler returns a mux with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}
