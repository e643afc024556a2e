package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/editor"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// writeServiceError maps service and storage errors to HTTP responses.
// The editor kinds are checked before store.ErrNotFound because an update
// that finds no row wraps both.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.FromContext(r.Context())

	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, editor.ErrNoChanges):
		middleware.WriteError(w, http.StatusConflict, "No changes to save")
	case errors.Is(err, aggregator.ErrFilterInvalid):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date range: from is after to")
	case errors.Is(err, editor.ErrBackupWriteFailed):
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusBadGateway, "Backup could not be written; record unchanged")
	case errors.Is(err, editor.ErrRecordUpdateFailed):
		log.Error().Err(err).Msg(msg)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":       "Record update failed after backup was written",
			"audit_trail": "orphaned_backup",
		})
	case errors.Is(err, editor.ErrRefetchFailed):
		log.Error().Err(err).Msg(msg)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Record updated but could not be reloaded",
			"stale": true,
		})
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// parseDate reads an optional YYYY-MM-DD query parameter.
func parseDate(q url.Values, key string) (*civil.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format, expected YYYY-MM-DD", key)
	}
	return &d, nil
}

// parseFilter reads the report filter from the query string. lenient is
// used when the request does not say.
func parseFilter(q url.Values, lenient bool) (aggregator.Filter, error) {
	from, err := parseDate(q, "from")
	if err != nil {
		return aggregator.Filter{}, err
	}
	to, err := parseDate(q, "to")
	if err != nil {
		return aggregator.Filter{}, err
	}

	if v := q.Get("lenient"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return aggregator.Filter{}, fmt.Errorf("invalid lenient value %q", v)
		}
		lenient = b
	}

	typ := strings.TrimSpace(q.Get("type"))
	if !aggregator.ValidType(typ) {
		return aggregator.Filter{}, fmt.Errorf("invalid type %q", typ)
	}

	return aggregator.Filter{
		DateFrom:        from,
		DateTo:          to,
		Currency:        strings.TrimSpace(q.Get("currency")),
		Account:         strings.TrimSpace(q.Get("account")),
		Type:            typ,
		LenientCategory: lenient,
	}, nil
}

// queryInt reads an optional integer query parameter. Invalid values fall back.
func queryInt(q url.Values, key string, fallback int) int {
	if v := q.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
