// Package store declares the storage collaborator used by the editor, the
// report loaders and the HTTP layer. Each backend (memory, postgres, bigquery)
// implements these interfaces over the customers, customer_backups,
// transactions and currencies tables.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// CustomerStore provides access to the customers table.
type CustomerStore interface {
	// GetCustomer reads a single customer by id.
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)

	// ListCustomers reads all customers.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	// UpdateCustomer applies patch to the customer with the given id.
	UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) error
}

// BackupStore provides access to the append-only customer_backups table.
type BackupStore interface {
	// InsertBackup appends a backup row. ID and CreatedAt are filled in when empty.
	InsertBackup(ctx context.Context, b *domain.CustomerBackup) error

	// ListBackups returns backups of a customer created at or after since,
	// newest first.
	ListBackups(ctx context.Context, customerID string, since time.Time) ([]domain.CustomerBackup, error)
}

// TransactionQuery narrows a transactions read at the storage side. Zero
// values mean "no constraint".
type TransactionQuery struct {
	CustomerName string
	From         time.Time
	To           time.Time
}

// TransactionStore provides access to the transactions table.
type TransactionStore interface {
	// ListTransactions returns matching transactions, newest first.
	ListTransactions(ctx context.Context, q TransactionQuery) ([]domain.Transaction, error)

	// DeleteTransaction removes a single transaction.
	DeleteTransaction(ctx context.Context, id string) error
}

// CurrencyStore provides access to the canonical currencies list.
type CurrencyStore interface {
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// Store bundles every table a backend serves.
type Store interface {
	CustomerStore
	BackupStore
	TransactionStore
	CurrencyStore

	// Close releases the backend's connections.
	Close() error
}
