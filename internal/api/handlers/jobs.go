package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// JobsHandler serves export job status.
type JobsHandler struct {
	store jobs.Store
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := jobs.Filter{
		CustomerID: q.Get("customer_id"),
		Status:     jobs.Status(q.Get("status")),
		Limit:      queryInt(q, "limit", 50),
		Offset:     queryInt(q, "offset", 0),
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
