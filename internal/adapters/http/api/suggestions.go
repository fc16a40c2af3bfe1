package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SuggestionsHandler serves a user's ranked scholarship suggestions.
type SuggestionsHandler struct {
	deps Dependencies
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(deps Dependencies) *SuggestionsHandler {
	return &SuggestionsHandler{deps: deps}
}

type suggestionEntry struct {
	Rank          int    `json:"rank"`
	ScholarshipID string `json:"scholarship_id"`
	Score         int    `json:"score"`
}

type suggestionsResponse struct {
	UserID      string            `json:"user_id"`
	GeneratedAt *time.Time        `json:"generated_at,omitempty"`
	Suggestions []suggestionEntry `json:"suggestions"`
}

// HandleGetSuggestions handles GET /suggestions/{user_id}[?refresh=true].
func (h *SuggestionsHandler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		refresh = b
	}

	set, err := h.deps.Suggestions(r.Context(), userID, refresh)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	resp := suggestionsResponse{UserID: userID, Suggestions: make([]suggestionEntry, 0, len(set))}
	for _, s := range set {
		resp.Suggestions = append(resp.Suggestions, suggestionEntry{Rank: s.Rank, ScholarshipID: s.ScholarshipID, Score: s.Score})
	}
	if len(set) > 0 {
		at := set[0].GeneratedAt
		resp.GeneratedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}
