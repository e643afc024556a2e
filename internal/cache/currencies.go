package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
)

const (
	currencyNamespace = "currencies"
	currencyKey       = "all"
)

// Backend is the subset of Cache used by CurrencyCatalog.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// CurrencyCatalog serves the currencies list from cache, loading it from the
// store on a miss. Cache failures are logged and fall through to the store.
type CurrencyCatalog struct {
	backend Backend
	source  store.CurrencyStore
	ttl     time.Duration
}

// NewCurrencyCatalog wraps source with a cache entry that lives for ttl.
func NewCurrencyCatalog(backend Backend, source store.CurrencyStore, ttl time.Duration) *CurrencyCatalog {
	return &CurrencyCatalog{backend: backend, source: source, ttl: ttl}
}

// ListCurrencies implements store.CurrencyStore.
func (c *CurrencyCatalog) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	log := logger.FromContext(ctx)

	raw, err := c.backend.Get(ctx, currencyNamespace, currencyKey)
	switch {
	case err == nil:
		var currencies []domain.Currency
		if jsonErr := json.Unmarshal([]byte(raw), &currencies); jsonErr == nil {
			return currencies, nil
		}
		log.Warn().Msg("Discarding undecodable currencies cache entry")
	case !errors.Is(err, ErrMiss):
		log.Warn().Err(err).Msg("Currencies cache read failed")
	}

	currencies, err := c.source.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCurrencies: load from store: %w", err)
	}

	payload, err := json.Marshal(currencies)
	if err != nil {
		return nil, fmt.Errorf("ListCurrencies: encode: %w", err)
	}
	if err := c.backend.Set(ctx, currencyNamespace, currencyKey, payload, c.ttl); err != nil {
		log.Warn().Err(err).Msg("Currencies cache write failed")
	}
	return currencies, nil
}

// Invalidate drops the cached list.
func (c *CurrencyCatalog) Invalidate(ctx context.Context) error {
	if err := c.backend.Delete(ctx, currencyNamespace, currencyKey); err != nil {
		return fmt.Errorf("Invalidate: %w", err)
	}
	return nil
}

var _ store.CurrencyStore = (*CurrencyCatalog)(nil)
