package handlers

import (
	"net/http"

	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	transactions store.TransactionStore
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		log:          log,
	}
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.transactions.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}

	h.log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	w.WriteHeader(http.StatusNoContent)
}

// CurrenciesHandler handles the canonical currency list.
type CurrenciesHandler struct {
	currencies store.CurrencyStore
	log        zerolog.Logger
}

// NewCurrenciesHandler creates a new currencies handler.
func NewCurrenciesHandler(currencies store.CurrencyStore, log zerolog.Logger) *CurrenciesHandler {
	return &CurrenciesHandler{
		currencies: currencies,
		log:        log,
	}
}

// ListCurrencies handles GET /api/currencies
func (h *CurrenciesHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencies.ListCurrencies(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list currencies")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"currencies": currencies,
		"count":      len(currencies),
	})
}
