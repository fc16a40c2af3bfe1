package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/scholarsync/internal/domain/model"
)

// ScholarshipsHandler serves the record pool.
type ScholarshipsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewScholarshipsHandler creates a new scholarships handler.
func NewScholarshipsHandler(deps Dependencies, maxLimit int) *ScholarshipsHandler {
	return &ScholarshipsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetScholarship handles GET /scholarships/{id}.
func (h *ScholarshipsHandler) HandleGetScholarship(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rec, err := h.deps.Scholarship(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type listResponse struct {
	Total        int                 `json:"total"`
	Offset       int                 `json:"offset"`
	Limit        int                 `json:"limit"`
	Scholarships []model.Scholarship `json:"scholarships"`
}

// HandleListScholarships handles GET /scholarships?limit=N&offset=M.
// limit defaults to the maximum. country, level, field and deadline narrow
// the listing by case-insensitive substring.
func (h *ScholarshipsHandler) HandleListScholarships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := h.maxLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", ErrLimitExceeded)
			return
		}
		limit = n
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		offset = n
	}

	filter := model.Filter{
		Country:  q.Get("country"),
		Level:    q.Get("level"),
		Field:    q.Get("field"),
		Deadline: q.Get("deadline"),
	}

	recs, total, err := h.deps.Scholarships(r.Context(), filter, offset, limit)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if recs == nil {
		recs = []model.Scholarship{}
	}
	writeJSON(w, http.StatusOK, listResponse{Total: total, Offset: offset, Limit: limit, Scholarships: recs})
}
