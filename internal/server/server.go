package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/goalmap/goalmap/internal/engine"
	"github.com/goalmap/goalmap/internal/ingest"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/store"
)

// Options tunes a Server. The zero value is usable.
type Options struct {
	// AllowedOrigins enables CORS for these origins. Empty disables CORS.
	AllowedOrigins []string

	// DefaultPriority and DefaultDecayRate apply to goals created without them.
	DefaultPriority  float64
	DefaultDecayRate float64

	// ResearchParent is the parent goal for research ingestion when the
	// request does not name one.
	ResearchParent string

	// AccessLog enables per-request logging.
	AccessLog bool
}

// Server is the goalmap HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	opts    Options
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine and version string.
func New(db *store.DB, eng *engine.Engine, version string, opts Options) *Server {
	if opts.ResearchParent == "" {
		opts.ResearchParent = ingest.DefaultResearchParent
	}
	s := &Server{
		db:      db,
		engine:  eng,
		opts:    opts,
		version: version,
		started: time.Now(),
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
	if s.opts.AccessLog {
		r.Use(middleware.Logger)
	}
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Get("/tree", s.handleGoalTree)
			r.Get("/next-id", s.handleNextID)
			r.Get("/{id}", s.handleGetGoal)
			r.Put("/{id}", s.handleUpdateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/accept", s.handleAccept)
			r.Post("/{id}/reject", s.handleReject)
		})
		r.Get("/select", s.handleSelect)

		r.Route("/goal-events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/goal/{goalID}", s.handleGoalEvents)
			r.Get("/date-range", s.handleEventsInRange)
			r.Put("/{id}", s.handleUpdateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
		})

		r.Post("/research/ingest", s.handleResearchIngest)
	})

	r.Get("/*", spaHandler())

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
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalid), errors.Is(err, priority.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("server error: %v", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

const maxJSONBody = 1 << 20

// decodeJSON reads a JSON request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
