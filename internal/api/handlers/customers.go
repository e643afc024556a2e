package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/directory"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/editor"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CustomersHandler handles the customer directory and profile endpoints.
type CustomersHandler struct {
	customers store.CustomerStore
	directory *directory.Directory
	editor    *editor.Editor
	log       zerolog.Logger
}

// NewCustomersHandler creates a new customers handler.
func NewCustomersHandler(customers store.CustomerStore, dir *directory.Directory, ed *editor.Editor, log zerolog.Logger) *CustomersHandler {
	return &CustomersHandler{
		customers: customers,
		directory: dir,
		editor:    ed,
		log:       log,
	}
}

// ListCustomers handles GET /api/customers
func (h *CustomersHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDate(q, "from")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDate(q, "to")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sort := directory.SortMode(q.Get("sort"))
	if sort != "" && !sort.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid sort mode")
		return
	}

	page, err := h.directory.List(r.Context(), directory.Query{
		Search:  strings.TrimSpace(q.Get("search")),
		From:    from,
		To:      to,
		Sort:    sort,
		Page:    queryInt(q, "page", 1),
		PerPage: queryInt(q, "per_page", directory.DefaultPerPage),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to list customers")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, page)
}

// GetCustomer handles GET /api/customers/{id}
func (h *CustomersHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	profile, err := h.editor.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load customer")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, profile)
}

// UpdateCustomer handles PUT /api/customers/{id}
func (h *CustomersHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Actor identity required")
		return
	}

	var form domain.CustomerForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	current, err := h.customers.GetCustomer(ctx, id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load customer")
		return
	}

	updated, err := h.editor.SaveEdit(ctx, id, *current, form, actor)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save customer")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, updated)
}

// ListBackups handles GET /api/customers/{id}/backups
func (h *CustomersHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r.URL.Query(), "days", 0)

	backups, err := h.editor.ListRecentBackups(r.Context(), chi.URLParam(r, "id"), days)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list backups")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// RestoreBackup handles POST /api/customers/{id}/backups/{backupID}/restore
// Only backups inside the ?days= window (default window when absent) can be restored.
func (h *CustomersHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	backupID := chi.URLParam(r, "backupID")

	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Actor identity required")
		return
	}

	backups, err := h.editor.ListRecentBackups(ctx, id, queryInt(r.URL.Query(), "days", 0))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list backups")
		return
	}
	var chosen *domain.CustomerBackup
	for i := range backups {
		if backups[i].ID == backupID {
			chosen = &backups[i]
			break
		}
	}
	if chosen == nil {
		middleware.WriteError(w, http.StatusNotFound, "Backup not found")
		return
	}

	current, err := h.customers.GetCustomer(ctx, id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load customer")
		return
	}

	restored, err := h.editor.RestoreFromBackup(ctx, id, *current, *chosen, actor)
	if err != nil {
		writeServiceError(w, r, err, "Failed to restore customer")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, restored)
}
