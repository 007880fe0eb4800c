// Package api serves a read-only view of the migration history log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RecordSource loads the history log.
type RecordSource interface {
	Load(ctx context.Context) ([]*models.MigrationRecord, error)
}

// RunReporter reports the most recent tracker run.
type RunReporter interface {
	LastRun() (models.RunResult, bool)
}

// Server is the REST API server.
type Server struct {
	records RecordSource
	runs    RunReporter
	logger  *slog.Logger
	router  *chi.Mux
	server  *http.Server
}

// Config holds the server dependencies. Runs and Metrics are optional.
type Config struct {
	Addr    string
	Records RecordSource
	Runs    RunReporter

	// Metrics is mounted at /metrics
	Metrics http.Handler
	Logger  *slog.Logger
}

// PaginationParams contains pagination parameters from query string.
type PaginationParams struct {
	Limit  int
	Offset int
}

// PaginatedResponse wraps a paginated response with metadata.
type PaginatedResponse struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// parsePaginationParams extracts pagination parameters from request.
// Defaults: limit=100, offset=0, max_limit=1000
func parsePaginationParams(r *http.Request) PaginationParams {
	const (
		defaultLimit = 100
		maxLimit     = 1000
	)

	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// paginateSlice applies pagination to a slice.
func paginateSlice[T any](items []T, params PaginationParams) PaginatedResponse {
	total := len(items)
	start := params.Offset

	if start >= total {
		return PaginatedResponse{
			Data:   []T{},
			Total:  total,
			Limit:  params.Limit,
			Offset: params.Offset,
		}
	}

	end := min(start+params.Limit, total)
	return PaginatedResponse{
		Data:    items[start:end],
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: end < total,
	}
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		records: cfg.Records,
		runs:    cfg.Runs,
		logger:  cfg.Logger,
		router:  chi.NewRouter(),
	}

	requestLog := slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelDebug)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: requestLog, NoColor: true}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.HandleHealth)

		r.Get("/records", s.listRecords)
		// latest must be registered before the {buildid} pattern
		r.Get("/records/latest", s.getLatestRecord)
		r.Get("/records/{buildid}", s.getRecord)

		r.Get("/runs/last", s.getLastRun)
	})

	if cfg.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// listRecords returns the history log oldest first.
// Supports ?since=BUILDID and pagination via ?limit=N&offset=M.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.Load(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if since := r.URL.Query().Get("since"); since != "" {
		if err := models.ValidateBuildID(since); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := records[:0:0]
		for _, rec := range records {
			if rec.BuildID >= since {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	s.respondJSON(w, http.StatusOK, paginateSlice(records, parsePaginationParams(r)))
}

// getLatestRecord returns the last record of the log.
func (s *Server) getLatestRecord(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.Load(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		s.respondError(w, http.StatusNotFound, models.ErrRecordNotFound.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, records[len(records)-1])
}

// getRecord returns the record of one build id.
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	buildID := chi.URLParam(r, "buildid")
	if err := models.ValidateBuildID(buildID); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := s.findRecord(r.Context(), buildID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			s.respondError(w, http.StatusNotFound, "record not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) findRecord(ctx context.Context, buildID string) (*models.MigrationRecord, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.BuildID == buildID {
			return rec, nil
		}
	}
	return nil, models.ErrRecordNotFound
}

// getLastRun returns the outcome of the most recent run.
func (s *Server) getLastRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, http.StatusNotFound, "no run yet")
		return
	}
	run, ok := s.runs.LastRun()
	if !ok {
		s.respondError(w, http.StatusNotFound, "no run yet")
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("writing response", "error", err)
	}
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
