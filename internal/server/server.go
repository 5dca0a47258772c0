package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daybook-sh/daybook/internal/engine"
	"github.com/daybook-sh/daybook/internal/store"
)

// Server is the daybook HTTP API server: a thin JSON adapter over the
// store and the recommendation engine.
type Server struct {
	db          *store.DB
	recommender *engine.Recommender
	router      chi.Router
	version     string
	started     time.Time

	graphThreshold float64
	insightDays    int
}

// Options carries request-level defaults, overridable per request via
// query parameters.
type Options struct {
	Version        string
	GraphThreshold float64 // similarity cut for /api/graph; 0.7 when unset
	InsightDays    int     // trailing window for /api/insights; 30 when unset
}

// New creates a new Server.
func New(db *store.DB, recommender *engine.Recommender, opts Options) *Server {
	if opts.GraphThreshold <= 0 {
		opts.GraphThreshold = 0.7
	}
	if opts.InsightDays <= 0 {
		opts.InsightDays = 30
	}

	s := &Server{
		db:             db,
		recommender:    recommender,
		version:        opts.Version,
		started:        time.Now(),
		graphThreshold: opts.GraphThreshold,
		insightDays:    opts.InsightDays,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/entries", s.handleCreateEntry)
		r.Get("/entries", s.handleListEntries)
		r.Get("/entries/{entryID}", s.handleGetEntry)

		r.Get("/related", s.handleRelated)
		r.Post("/recommend", s.handleRecommend)
		r.Get("/graph", s.handleGraph)
		r.Get("/attention", s.handleAttention)
		r.Get("/insights", s.handleInsights)
		r.Put("/weights", s.handleUpdateWeights)
		r.Get("/weights", s.handleGetWeights)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
