// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/domain/model"
)

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Suggestions returns the user's ranked set, recomputing it when
	// refresh is set or no set exists yet.
	Suggestions(ctx context.Context, userID string, refresh bool) ([]model.Suggestion, error)

	// Scholarship returns one record by id.
	Scholarship(ctx context.Context, id string) (model.Scholarship, error)

	// Scholarships pages through the records passing f in id order and
	// reports how many pass in total.
	Scholarships(ctx context.Context, f model.Filter, offset, limit int) ([]model.Scholarship, int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	suggestionsHandler  *SuggestionsHandler
	scholarshipsHandler *ScholarshipsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// page size of GET /scholarships.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		suggestionsHandler:  NewSuggestionsHandler(deps),
		scholarshipsHandler: NewScholarshipsHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /suggestions/{user_id}", MetricsMiddleware(s.suggestionsHandler.HandleGetSuggestions, "suggestions"))
	mux.HandleFunc("GET /scholarships/{id}", MetricsMiddleware(s.scholarshipsHandler.HandleGetScholarship, "scholarship"))
	mux.HandleFunc("GET /scholarships", MetricsMiddleware(s.scholarshipsHandler.HandleListScholarships, "scholarships"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	noteErrorCode(w, code)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError translates service errors into status codes.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
