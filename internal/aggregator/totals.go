package aggregator

import (
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// CountByType tallies transactions per type.
func CountByType(txs []domain.Transaction) map[domain.TransactionType]int {
	counts := make(map[domain.TransactionType]int)
	for _, t := range txs {
		counts[t.Type]++
	}
	return counts
}

// CurrencyNetTotals sums amount + fee of straight deposits (entry/Deposit) and
// withdrawals (exit/Withdrawal) per currency. Rows carrying an FX pair and
// rows whose total is zero are left out; a currency with no activity is
// absent from all three maps.
func CurrencyNetTotals(txs []domain.Transaction) CurrencyTotals {
	return CurrencyNetTotalsWith(txs, false)
}

// CurrencyNetTotalsWith is CurrencyNetTotals where, when lenient is set, an
// entry or exit without a category is classified by its type alone.
func CurrencyNetTotalsWith(txs []domain.Transaction, lenient bool) CurrencyTotals {
	totals := CurrencyTotals{
		Deposits:    make(map[string]decimal.Decimal),
		Withdrawals: make(map[string]decimal.Decimal),
		Net:         make(map[string]decimal.Decimal),
	}

	for _, t := range txs {
		currency := t.CurrencyValue()
		if t.HasFXPair() || currency == "" {
			continue
		}
		total := domain.Num(t.Amount).Add(domain.Num(t.Fee))
		if total.IsZero() {
			continue
		}

		switch {
		case t.Type == domain.TypeEntry && categoryIs(t, domain.CategoryDeposit, lenient):
			totals.Deposits[currency] = totals.Deposits[currency].Add(total)
		case t.Type == domain.TypeExit && categoryIs(t, domain.CategoryWithdrawal, lenient):
			totals.Withdrawals[currency] = totals.Withdrawals[currency].Add(total)
		}
	}

	for c, v := range totals.Deposits {
		totals.Net[c] = v.Sub(totals.Withdrawals[c])
	}
	for c, v := range totals.Withdrawals {
		if _, ok := totals.Deposits[c]; !ok {
			totals.Net[c] = v.Neg()
		}
	}
	return totals
}

// CurrencyLine is one row of the per-currency net table.
type CurrencyLine struct {
	Currency   string          `json:"currency"`
	Deposit    decimal.Decimal `json:"deposit"`
	Withdrawal decimal.Decimal `json:"withdrawal"`
	Net        decimal.Decimal `json:"net"`
}

// MergeCurrencies lays totals out against the canonical currency list, in
// list order. Currencies without activity get zero lines; currencies missing
// from the list are dropped.
func MergeCurrencies(totals CurrencyTotals, canonical []string) []CurrencyLine {
	lines := make([]CurrencyLine, 0, len(canonical))
	seen := make(map[string]bool, len(canonical))
	for _, c := range canonical {
		if seen[c] {
			continue
		}
		seen[c] = true
		lines = append(lines, CurrencyLine{
			Currency:   c,
			Deposit:    totals.Deposits[c],
			Withdrawal: totals.Withdrawals[c],
			Net:        totals.Net[c],
		})
	}
	return lines
}
