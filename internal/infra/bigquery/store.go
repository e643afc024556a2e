// Package bigquery implements store.Store on BigQuery tables created by the
// migrations under migrations/bigquery.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
)

const (
	customersTable    = "customers"
	backupsTable      = "customer_backups"
	transactionsTable = "transactions"
	currenciesTable   = "currencies"
)

// Dataset addresses the project and dataset holding the back-office tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the fully qualified, backquoted table name for use in SQL.
func (d Dataset) Table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// Store is the BigQuery implementation of store.Store. It holds a shared
// client so operations do not open a connection each.
type Store struct {
	client *bigquery.Client
	ds     Dataset
}

// NewStore creates a client for projectID and a store over datasetID.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, Dataset{ProjectID: projectID, DatasetID: datasetID}), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *bigquery.Client, ds Dataset) *Store {
	return &Store{client: client, ds: ds}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// GetCustomer delegates to GetCustomerWithClient with the shared client.
func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return GetCustomerWithClient(ctx, s.client, s.ds, id)
}

// ListCustomers delegates to ListCustomersWithClient with the shared client.
func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return ListCustomersWithClient(ctx, s.client, s.ds)
}

// UpdateCustomer delegates to UpdateCustomerWithClient with the shared client.
func (s *Store) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) error {
	return UpdateCustomerWithClient(ctx, s.client, s.ds, id, patch)
}

// InsertBackup delegates to InsertBackupWithClient with the shared client.
func (s *Store) InsertBackup(ctx context.Context, b *domain.CustomerBackup) error {
	return InsertBackupWithClient(ctx, s.client, s.ds, b)
}

// ListBackups delegates to ListBackupsWithClient with the shared client.
func (s *Store) ListBackups(ctx context.Context, customerID string, since time.Time) ([]domain.CustomerBackup, error) {
	return ListBackupsWithClient(ctx, s.client, s.ds, customerID, since)
}

// ListTransactions delegates to ListTransactionsWithClient with the shared client.
func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, s.client, s.ds, q)
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (s *Store) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	return InsertTransactionsWithClient(ctx, s.client, s.ds, txs)
}

// DeleteTransaction delegates to DeleteTransactionWithClient with the shared client.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return DeleteTransactionWithClient(ctx, s.client, s.ds, id)
}

// ListCurrencies delegates to ListCurrenciesWithClient with the shared client.
func (s *Store) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return ListCurrenciesWithClient(ctx, s.client, s.ds)
}

// runDML runs a DML statement and returns the number of affected rows.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

var _ store.Store = (*Store)(nil)
