// Package http exposes the admin surface: migration state and toggles, routing
// explanations and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/migration"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Coordinator is the part of the migration coordinator the admin surface drives.
type Coordinator interface {
	State() domain.MigrationState
	SetMigrationMode(ctx context.Context, on bool) (domain.MigrationState, error)
	SetDropOriginal(ctx context.Context, on bool) (domain.MigrationState, error)
	CompleteMigration(ctx context.Context) (domain.MigrationState, error)
	Explain(ctx context.Context, key string) migration.Decision
}

// Locator reports which shard of a store a key lives on.
type Locator interface {
	Name() string
	Locate(key string) (backend.Location, error)
}

// Server holds the admin handlers.
type Server struct {
	Coordinator Coordinator
	Stores      []Locator
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// ToggleRequest is the body of the toggle endpoints.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// StateResponse is returned by every migration endpoint.
type StateResponse struct {
	State domain.MigrationState `json:"state"`
	Diff  *domain.StateDiff     `json:"diff,omitempty"`
}

// ShardInfo is where a key lives inside one store.
type ShardInfo struct {
	Identity string `json:"identity,omitempty"`
	Shard    int    `json:"shard"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RouteResponse explains the routing of one key.
type RouteResponse struct {
	Key      string               `json:"key"`
	Decision migration.Decision   `json:"decision"`
	Shards   map[string]ShardInfo `json:"shards"`
}

// NewHandler creates the admin HTTP handler. A nil gatherer disables /metrics.
func NewHandler(coord Coordinator, stores []Locator, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{Coordinator: coord, Stores: stores, Gatherer: gatherer, Logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.Health)
	r.Route("/migration", func(r chi.Router) {
		r.Get("/", s.GetMigration)
		r.Put("/mode", s.toggle(coord.SetMigrationMode))
		r.Put("/drop-original", s.toggle(coord.SetDropOriginal))
		r.Post("/complete", s.Complete)
	})
	r.Get("/sessions/{key}/route", s.Route)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMigration handles GET /migration.
func (s *Server) GetMigration(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StateResponse{State: s.Coordinator.State()})
}

func (s *Server) toggle(set func(context.Context, bool) (domain.MigrationState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
			http.Error(w, `Invalid request body, expected {"enabled": true|false}`, http.StatusBadRequest)
			return
		}

		before := s.Coordinator.State()
		after, err := set(r.Context(), *body.Enabled)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.Logger.Info("Migration toggle changed", "path", r.URL.Path, "enabled", *body.Enabled)
		s.writeJSON(w, http.StatusOK, StateResponse{State: after, Diff: domain.Diff(before, after)})
	}
}

// Complete handles POST /migration/complete.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	before := s.Coordinator.State()
	after, err := s.Coordinator.CompleteMigration(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StateResponse{State: after, Diff: domain.Diff(before, after)})
}

// Route handles GET /sessions/{key}/route. It never changes the migration state.
func (s *Server) Route(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	resp := RouteResponse{
		Key:      key,
		Decision: s.Coordinator.Explain(r.Context(), key),
		Shards:   make(map[string]ShardInfo, len(s.Stores)),
	}
	for _, store := range s.Stores {
		loc, err := store.Locate(key)
		if err != nil {
			resp.Shards[store.Name()] = ShardInfo{Shard: -1, Error: err.Error()}
			continue
		}
		resp.Shards[store.Name()] = ShardInfo{Identity: loc.Identity, Shard: loc.Shard, Kind: string(loc.Conn.Kind())}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// -- Helpers --

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNoMigration), errors.Is(err, domain.ErrConfiguration):
		status = http.StatusConflict
	case errors.Is(err, migration.ErrContention):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrBackendUnavailable):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to encode response", "err", err)
	}
}
