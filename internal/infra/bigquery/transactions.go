package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

type TransactionRow struct {
	ID        string              `bigquery:"id"`         // REQUIRED
	UserID    bigquery.NullString `bigquery:"user_id"`    // NULLABLE
	Type      string              `bigquery:"type"`       // REQUIRED
	Category  bigquery.NullString `bigquery:"category"`   // NULLABLE
	CreatedAt time.Time           `bigquery:"created_at"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // NULLABLE NUMERIC
	Fee    *big.Rat `bigquery:"fee"`    // NULLABLE NUMERIC
	Price  *big.Rat `bigquery:"price"`  // NULLABLE NUMERIC
	Rate   *big.Rat `bigquery:"rate"`   // NULLABLE NUMERIC

	Currency      bigquery.NullString `bigquery:"currency"`       // NULLABLE
	CurrencyFinal bigquery.NullString `bigquery:"currency_final"` // NULLABLE
	FeeCurrency   bigquery.NullString `bigquery:"fee_currency"`   // NULLABLE

	FXBaseCurrency  bigquery.NullString `bigquery:"fx_base_currency"`  // NULLABLE
	FXQuoteCurrency bigquery.NullString `bigquery:"fx_quote_currency"` // NULLABLE
	FXBaseAmount    *big.Rat            `bigquery:"fx_base_amount"`    // NULLABLE NUMERIC

	CustomerName    bigquery.NullString `bigquery:"customer_name"`
	CountryCity     bigquery.NullString `bigquery:"country_city"`
	DeliverTo       bigquery.NullString `bigquery:"deliver_to"`
	FromAccountName bigquery.NullString `bigquery:"from_account_name"`
	ToAccountName   bigquery.NullString `bigquery:"to_account_name"`
	Treasury        bigquery.NullString `bigquery:"treasury"`
	Notes           bigquery.NullString `bigquery:"notes"`
}

// Transaction converts the row to the domain record.
func (r TransactionRow) Transaction() domain.Transaction {
	t := domain.Transaction{
		ID:              r.ID,
		UserID:          r.UserID.StringVal,
		Type:            domain.TransactionType(r.Type),
		CreatedAt:       r.CreatedAt,
		Amount:          decimalFromRat(r.Amount),
		Fee:             decimalFromRat(r.Fee),
		Price:           decimalFromRat(r.Price),
		Rate:            decimalFromRat(r.Rate),
		Currency:        fromNullString(r.Currency),
		CurrencyFinal:   r.CurrencyFinal.StringVal,
		FeeCurrency:     fromNullString(r.FeeCurrency),
		FXBaseCurrency:  fromNullString(r.FXBaseCurrency),
		FXQuoteCurrency: fromNullString(r.FXQuoteCurrency),
		FXBaseAmount:    decimalFromRat(r.FXBaseAmount),
		CustomerName:    r.CustomerName.StringVal,
		CountryCity:     r.CountryCity.StringVal,
		DeliverTo:       r.DeliverTo.StringVal,
		FromAccountName: fromNullString(r.FromAccountName),
		ToAccountName:   fromNullString(r.ToAccountName),
		Treasury:        fromNullString(r.Treasury),
		Notes:           fromNullString(r.Notes),
	}
	if r.Category.Valid {
		t.Category = domain.Cat(domain.Category(r.Category.StringVal))
	}
	return t
}

// TransactionRowFrom converts a domain record to a row for insertion.
func TransactionRowFrom(t domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		ID:              t.ID,
		UserID:          nullIfEmpty(t.UserID),
		Type:            string(t.Type),
		CreatedAt:       t.CreatedAt,
		Amount:          ratFromDecimal(t.Amount),
		Fee:             ratFromDecimal(t.Fee),
		Price:           ratFromDecimal(t.Price),
		Rate:            ratFromDecimal(t.Rate),
		Currency:        toNullString(t.Currency),
		CurrencyFinal:   nullIfEmpty(t.CurrencyFinal),
		FeeCurrency:     toNullString(t.FeeCurrency),
		FXBaseCurrency:  toNullString(t.FXBaseCurrency),
		FXQuoteCurrency: toNullString(t.FXQuoteCurrency),
		FXBaseAmount:    ratFromDecimal(t.FXBaseAmount),
		CustomerName:    nullIfEmpty(t.CustomerName),
		CountryCity:     nullIfEmpty(t.CountryCity),
		DeliverTo:       nullIfEmpty(t.DeliverTo),
		FromAccountName: toNullString(t.FromAccountName),
		ToAccountName:   toNullString(t.ToAccountName),
		Treasury:        toNullString(t.Treasury),
		Notes:           toNullString(t.Notes),
	}
	if t.Category != nil {
		row.Category = bigquery.NullString{StringVal: string(*t.Category), Valid: true}
	}
	return row
}

// transactionsQuery builds the SELECT for q with named parameters.
func transactionsQuery(ds Dataset, q store.TransactionQuery) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if q.CustomerName != "" {
		where = append(where, "customer_name = @customer_name")
		params = append(params, bigquery.QueryParameter{Name: "customer_name", Value: q.CustomerName})
	}
	if !q.From.IsZero() {
		where = append(where, "created_at >= @from_ts")
		params = append(params, bigquery.QueryParameter{Name: "from_ts", Value: q.From})
	}
	if !q.To.IsZero() {
		where = append(where, "created_at <= @to_ts")
		params = append(params, bigquery.QueryParameter{Name: "to_ts", Value: q.To})
	}

	sql := fmt.Sprintf("SELECT * FROM %s", ds.Table(transactionsTable))
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, "\n  AND ")
	}
	sql += "\nORDER BY created_at DESC"
	return sql, params
}

// ListTransactionsWithClient reads matching transactions, newest first.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, tq store.TransactionQuery) ([]domain.Transaction, error) {
	sql, params := transactionsQuery(ds, tq)
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		txs = append(txs, row.Transaction())
	}

	return txs, nil
}

// InsertTransactionsWithClient streams a batch of transactions into the table.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		rows = append(rows, TransactionRowFrom(t))
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// DeleteTransactionWithClient removes one transaction by id.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = @id
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteTransaction: transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}
