package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
)

// mockBackend is an in-process Backend.
type mockBackend struct {
	data    map[string]string
	GetErr  error
	SetErr  error
	lastTTL time.Duration
}

func newMockBackend() *mockBackend {
	return &mockBackend{data: make(map[string]string)}
}

func (m *mockBackend) Get(ctx context.Context, namespace, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.data[namespace+":"+key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *mockBackend) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.lastTTL = ttl
	m.data[namespace+":"+key] = string(value.([]byte))
	return nil
}

func (m *mockBackend) Delete(ctx context.Context, namespace, key string) error {
	delete(m.data, namespace+":"+key)
	return nil
}

// mockCurrencyStore counts loads.
type mockCurrencyStore struct {
	currencies []domain.Currency
	err        error
	calls      int
}

func (m *mockCurrencyStore) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	m.calls++
	return m.currencies, m.err
}

func TestCurrencyCatalog_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	src := &mockCurrencyStore{currencies: []domain.Currency{{ID: "1", Name: "دولار", Code: "USD"}}}
	cat := NewCurrencyCatalog(backend, src, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := cat.ListCurrencies(ctx)
		if err != nil {
			t.Fatalf("ListCurrencies failed: %v", err)
		}
		if len(got) != 1 || got[0].Code != "USD" {
			t.Fatalf("ListCurrencies() = %v", got)
		}
	}
	if src.calls != 1 {
		t.Errorf("store loads = %d, want 1", src.calls)
	}
	if backend.lastTTL != time.Minute {
		t.Errorf("ttl = %v, want 1m", backend.lastTTL)
	}

	if err := cat.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := cat.ListCurrencies(ctx); err != nil {
		t.Fatalf("ListCurrencies failed: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("store loads after invalidate = %d, want 2", src.calls)
	}
}

func TestCurrencyCatalog_CacheDown(t *testing.T) {
	backend := newMockBackend()
	backend.GetErr = errors.New("dial tcp: connection refused")
	backend.SetErr = errors.New("dial tcp: connection refused")
	src := &mockCurrencyStore{currencies: []domain.Currency{{Code: "EUR"}}}

	got, err := NewCurrencyCatalog(backend, src, time.Minute).ListCurrencies(context.Background())
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ListCurrencies() = %v", got)
	}
}

func TestCurrencyCatalog_CorruptEntry(t *testing.T) {
	backend := newMockBackend()
	backend.data[currencyNamespace+":"+currencyKey] = "{not json"
	src := &mockCurrencyStore{currencies: []domain.Currency{{Code: "TRY"}}}

	got, err := NewCurrencyCatalog(backend, src, 0).ListCurrencies(context.Background())
	if err != nil || len(got) != 1 || got[0].Code != "TRY" {
		t.Fatalf("ListCurrencies() = %v, %v", got, err)
	}
	if src.calls != 1 {
		t.Errorf("store loads = %d, want 1", src.calls)
	}
}

func TestCurrencyCatalog_StoreError(t *testing.T) {
	src := &mockCurrencyStore{err: errors.New("db down")}
	_, err := NewCurrencyCatalog(newMockBackend(), src, 0).ListCurrencies(context.Background())
	if !errors.Is(err, src.err) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
