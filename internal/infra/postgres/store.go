package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store implements store.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an open pool. Close closes the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const customerColumns = `id::text, name, phones, email, status, notes, enabled_currencies, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var (
		c      domain.Customer
		status string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phones, &c.Email, &status, &c.Notes, &c.EnabledCurrencies, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CustomerStatus(status)
	return &c, nil
}

// GetCustomer implements store.CustomerStore.
func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("GetCustomer: customer %s: %w", id, store.ErrNotFound)
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: customer %s: %w", id, mapErr(err))
	}
	return c, nil
}

// ListCustomers implements store.CustomerStore.
func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListCustomers: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCustomers: scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCustomers: rows: %w", err)
	}
	return out, nil
}

// UpdateCustomer implements store.CustomerStore.
func (s *Store) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("UpdateCustomer: customer %s: %w", id, store.ErrNotFound)
	}

	phones := patch.Phones
	if phones == nil {
		phones = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE customers
		SET name = $2, phones = $3, email = $4, status = $5, notes = $6, updated_at = $7
		WHERE id = $1`,
		id, patch.Name, phones, patch.Email, string(patch.Status), patch.Notes, patch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("UpdateCustomer: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateCustomer: customer %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// InsertBackup implements store.BackupStore.
func (s *Store) InsertBackup(ctx context.Context, b *domain.CustomerBackup) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	oldData, newData, err := encodeSnapshots(b)
	if err != nil {
		return fmt.Errorf("InsertBackup: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO customer_backups
			(id, customer_id, old_data, new_data, changed_by, changed_by_email, changed_by_display_name, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.CustomerID, oldData, newData, b.ChangedBy, b.ChangedByEmail, b.ChangedByDisplayName, b.Reason, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertBackup: exec: %w", err)
	}
	return nil
}

// ListBackups implements store.BackupStore.
func (s *Store) ListBackups(ctx context.Context, customerID string, since time.Time) ([]domain.CustomerBackup, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, customer_id::text, old_data, new_data, changed_by,
		       changed_by_email, changed_by_display_name, reason, created_at
		FROM customer_backups
		WHERE customer_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`,
		customerID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("ListBackups: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CustomerBackup
	for rows.Next() {
		var (
			b                domain.CustomerBackup
			oldData, newData []byte
		)
		if err := rows.Scan(&b.ID, &b.CustomerID, &oldData, &newData, &b.ChangedBy,
			&b.ChangedByEmail, &b.ChangedByDisplayName, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListBackups: scan: %w", err)
		}
		if err := decodeSnapshots(&b, oldData, newData); err != nil {
			return nil, fmt.Errorf("ListBackups: backup %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBackups: rows: %w", err)
	}
	return out, nil
}

func encodeSnapshots(b *domain.CustomerBackup) (oldData, newData []byte, err error) {
	if oldData, err = json.Marshal(b.OldData); err != nil {
		return nil, nil, fmt.Errorf("encoding old_data: %w", err)
	}
	if newData, err = json.Marshal(b.NewData); err != nil {
		return nil, nil, fmt.Errorf("encoding new_data: %w", err)
	}
	return oldData, newData, nil
}

func decodeSnapshots(b *domain.CustomerBackup, oldData, newData []byte) error {
	if err := json.Unmarshal(oldData, &b.OldData); err != nil {
		return fmt.Errorf("decoding old_data: %w", err)
	}
	if err := json.Unmarshal(newData, &b.NewData); err != nil {
		return fmt.Errorf("decoding new_data: %w", err)
	}
	return nil
}

const transactionColumns = `
	id::text, COALESCE(user_id, ''), type, category, created_at,
	amount, fee, price, rate,
	currency, COALESCE(currency_final, ''), fee_currency,
	fx_base_currency, fx_quote_currency, fx_base_amount,
	customer_name, country_city, deliver_to,
	from_account_name, to_account_name, treasury, notes`

// transactionsQuery builds the SELECT for q. Arguments are positional.
func transactionsQuery(q store.TransactionQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.CustomerName != "" {
		args = append(args, q.CustomerName)
		where = append(where, fmt.Sprintf("customer_name = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	sql := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC`
	return sql, args
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]domain.Transaction, error) {
	sql, args := transactionsQuery(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			t        domain.Transaction
			typ      string
			category *string
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &typ, &category, &t.CreatedAt,
			&t.Amount, &t.Fee, &t.Price, &t.Rate,
			&t.Currency, &t.CurrencyFinal, &t.FeeCurrency,
			&t.FXBaseCurrency, &t.FXQuoteCurrency, &t.FXBaseAmount,
			&t.CustomerName, &t.CountryCity, &t.DeliverTo,
			&t.FromAccountName, &t.ToAccountName, &t.Treasury, &t.Notes,
		); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		t.Type = domain.TransactionType(typ)
		if category != nil {
			t.Category = domain.Cat(domain.Category(*category))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return out, nil
}

// InsertTransaction adds a transaction. It is used by seeding and tests; the
// transaction wizard writes through its own workflow.
func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	var category *string
	if t.Category != nil {
		c := string(*t.Category)
		category = &c
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, type, category, created_at, amount, fee, price, rate,
			currency, currency_final, fee_currency, fx_base_currency, fx_quote_currency, fx_base_amount,
			customer_name, country_city, deliver_to, from_account_name, to_account_name, treasury, notes
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22)`,
		t.ID, t.UserID, string(t.Type), category, t.CreatedAt,
		numeric(t.Amount), numeric(t.Fee), numeric(t.Price), numeric(t.Rate),
		t.Currency, t.CurrencyFinal, t.FeeCurrency, t.FXBaseCurrency, t.FXQuoteCurrency, numeric(t.FXBaseAmount),
		t.CustomerName, t.CountryCity, t.DeliverTo, t.FromAccountName, t.ToAccountName, t.Treasury, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: exec: %w", err)
	}
	return nil
}

// numeric renders a nullable decimal as a NUMERIC text parameter.
func numeric(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("DeleteTransaction: transaction %s: %w", id, store.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteTransaction: transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListCurrencies implements store.CurrencyStore.
func (s *Store) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, name, code, symbol FROM currencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListCurrencies: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Currency
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Symbol); err != nil {
			return nil, fmt.Errorf("ListCurrencies: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCurrencies: rows: %w", err)
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
