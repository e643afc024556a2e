package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"google.golang.org/api/iterator"
)

type CustomerRow struct {
	ID                string                 `bigquery:"id"`                 // REQUIRED
	Name              string                 `bigquery:"name"`               // REQUIRED
	Phones            []string               `bigquery:"phones"`             // REPEATED STRING
	Email             bigquery.NullString    `bigquery:"email"`              // NULLABLE
	Status            string                 `bigquery:"status"`             // REQUIRED
	Notes             bigquery.NullString    `bigquery:"notes"`              // NULLABLE
	EnabledCurrencies []string               `bigquery:"enabled_currencies"` // REPEATED STRING
	CreatedAt         time.Time              `bigquery:"created_at"`         // REQUIRED
	UpdatedAt         bigquery.NullTimestamp `bigquery:"updated_at"`         // NULLABLE
}

// Customer converts the row to the domain record.
func (r CustomerRow) Customer() domain.Customer {
	c := domain.Customer{
		ID:                r.ID,
		Name:              r.Name,
		Phones:            r.Phones,
		Email:             fromNullString(r.Email),
		Status:            domain.CustomerStatus(r.Status),
		Notes:             fromNullString(r.Notes),
		EnabledCurrencies: r.EnabledCurrencies,
		CreatedAt:         r.CreatedAt,
	}
	if r.UpdatedAt.Valid {
		u := r.UpdatedAt.Timestamp
		c.UpdatedAt = &u
	}
	return c
}

const customerColumns = `
	id,
	name,
	phones,
	email,
	status,
	notes,
	enabled_currencies,
	created_at,
	updated_at`

// GetCustomerWithClient reads one customer by id.
func GetCustomerWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*domain.Customer, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = @id
		LIMIT 1
	`, customerColumns, ds.Table(customersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: query read: %w", err)
	}

	var row CustomerRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetCustomer: customer %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: iter next: %w", err)
	}

	c := row.Customer()
	return &c, nil
}

// ListCustomersWithClient reads all customers, newest first.
func ListCustomersWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]domain.Customer, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC
	`, customerColumns, ds.Table(customersTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCustomers: query read: %w", err)
	}

	var customers []domain.Customer
	for {
		var row CustomerRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCustomers: iter next: %w", err)
		}
		customers = append(customers, row.Customer())
	}

	return customers, nil
}

// UpdateCustomerWithClient writes patch to the customer with the given id.
func UpdateCustomerWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string, patch domain.CustomerPatch) error {
	phones := patch.Phones
	if phones == nil {
		phones = []string{}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			name = @name,
			phones = @phones,
			email = @email,
			status = @status,
			notes = @notes,
			updated_at = @updated_at
		WHERE id = @id
	`, ds.Table(customersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "name", Value: patch.Name},
		{Name: "phones", Value: phones},
		{Name: "email", Value: toNullString(patch.Email)},
		{Name: "status", Value: string(patch.Status)},
		{Name: "notes", Value: toNullString(patch.Notes)},
		{Name: "updated_at", Value: patch.UpdatedAt},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateCustomer: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("UpdateCustomer: customer %s: %w", id, store.ErrNotFound)
	}
	return nil
}
