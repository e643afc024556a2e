package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"google.golang.org/api/iterator"
)

type CurrencyRow struct {
	ID     string              `bigquery:"id"`     // REQUIRED
	Name   string              `bigquery:"name"`   // REQUIRED
	Code   bigquery.NullString `bigquery:"code"`   // NULLABLE
	Symbol bigquery.NullString `bigquery:"symbol"` // NULLABLE
}

// ListCurrenciesWithClient reads the canonical currency list ordered by name.
func ListCurrenciesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]domain.Currency, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT id, name, code, symbol
		FROM %s
		ORDER BY name
	`, ds.Table(currenciesTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCurrencies: query read: %w", err)
	}

	var currencies []domain.Currency
	for {
		var row CurrencyRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCurrencies: iter next: %w", err)
		}
		currencies = append(currencies, domain.Currency{
			ID:     row.ID,
			Name:   row.Name,
			Code:   row.Code.StringVal,
			Symbol: row.Symbol.StringVal,
		})
	}

	return currencies, nil
}
