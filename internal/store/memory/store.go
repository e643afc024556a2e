package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	customers    map[string]domain.Customer
	backups      []domain.CustomerBackup
	transactions []domain.Transaction
	currencies   []domain.Currency
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
	}
}

// PutCustomer inserts or replaces a customer. Used for seeding.
func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.customers[c.ID] = c.Clone()
}

// PutTransactions appends transactions. Used for seeding.
func (s *Store) PutTransactions(txs ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.transactions = append(s.transactions, t)
	}
}

// PutCurrencies replaces the currencies list. Used for seeding.
func (s *Store) PutCurrencies(cs ...domain.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currencies = append([]domain.Currency(nil), cs...)
}

// GetCustomer implements store.CustomerStore.
func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	out := c.Clone()
	return &out, nil
}

// ListCustomers implements store.CustomerStore.
func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateCustomer implements store.CustomerStore.
func (s *Store) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	s.customers[id] = patch.Apply(c)
	return nil
}

// InsertBackup implements store.BackupStore.
func (s *Store) InsertBackup(ctx context.Context, b *domain.CustomerBackup) error {
	if b.CustomerID == "" {
		return fmt.Errorf("backup customer ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	row := *b
	row.OldData = b.OldData.Clone()
	row.NewData = b.NewData.Clone()
	s.backups = append(s.backups, row)
	return nil
}

// ListBackups implements store.BackupStore.
func (s *Store) ListBackups(ctx context.Context, customerID string, since time.Time) ([]domain.CustomerBackup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CustomerBackup
	for _, b := range s.backups {
		if b.CustomerID != customerID || b.CreatedAt.Before(since) {
			continue
		}
		row := b
		row.OldData = b.OldData.Clone()
		row.NewData = b.NewData.Clone()
		out = append(out, row)
	}

	// Stable keeps insertion order among equal timestamps, newest insert first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, t := range s.transactions {
		if q.CustomerName != "" && t.CustomerName != q.CustomerName {
			continue
		}
		if !q.From.IsZero() && t.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && t.CreatedAt.After(q.To) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
}

// ListCurrencies implements store.CurrencyStore.
func (s *Store) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Currency(nil), s.currencies...), nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
