package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/dvloznov/fx-backoffice/internal/reportexport"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ExportChecker validates export destinations before a job is queued.
type ExportChecker interface {
	Check(destinations []jobs.Destination) error
}

// ReportsHandler handles report and export endpoints.
type ReportsHandler struct {
	reports   reportexport.ReportSource
	checker   ExportChecker
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler. A nil publisher disables exports.
func NewReportsHandler(reports reportexport.ReportSource, checker ExportChecker, publisher jobs.Publisher, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports:   reports,
		checker:   checker,
		publisher: publisher,
		log:       log,
	}
}

// CustomerReport handles GET /api/customers/{id}/report
// Category matching is strict unless ?lenient=true.
func (h *ReportsHandler) CustomerReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query(), false)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.reports.Customer(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build customer report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rep)
}

// CompanyReport handles GET /api/reports/company
// Category matching is lenient unless ?lenient=false.
func (h *ReportsHandler) CompanyReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query(), true)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.reports.Company(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build company report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rep)
}

// exportRequest is the body of POST /api/reports/exports.
type exportRequest struct {
	CustomerID   string             `json:"customer_id"`
	From         *civil.Date        `json:"from"`
	To           *civil.Date        `json:"to"`
	Currency     string             `json:"currency"`
	Account      string             `json:"account"`
	Type         string             `json:"type"`
	Lenient      *bool              `json:"lenient"`
	Destinations []jobs.Destination `json:"destinations"`
}

// EnqueueExport handles POST /api/reports/exports
func (h *ReportsHandler) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.publisher == nil || h.checker == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Report exports are disabled")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Type = strings.TrimSpace(req.Type)
	if !aggregator.ValidType(req.Type) {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid type %q", req.Type))
		return
	}
	if err := aggregator.ValidateRange(req.From, req.To); err != nil {
		writeServiceError(w, r, err, "Invalid export filter")
		return
	}
	if err := h.checker.Check(req.Destinations); err != nil {
		if errors.Is(err, reportexport.ErrDestinationUnavailable) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, r, err, "Failed to check export destinations")
		return
	}

	// Company exports default to lenient category matching, like the company report.
	lenient := strings.TrimSpace(req.CustomerID) == ""
	if req.Lenient != nil {
		lenient = *req.Lenient
	}

	job := &jobs.Export{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Filter: aggregator.Filter{
			DateFrom:        req.From,
			DateTo:          req.To,
			Currency:        req.Currency,
			Account:         req.Account,
			Type:            req.Type,
			LenientCategory: lenient,
		},
		Destinations: req.Destinations,
	}
	if actor, ok := middleware.ActorFromContext(ctx); ok {
		job.RequestedBy = actor.ID
	}

	if err := h.publisher.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("customer_id", job.CustomerID).
		Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": job.Status,
	})
}
