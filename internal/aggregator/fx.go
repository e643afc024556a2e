package aggregator

import (
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// FXCurrencyTotals sums the price of buy or sell_to rows per currency, keyed
// by the FX base currency or else the plain currency. AverageRate is the
// simple mean of the non-zero rates seen for that currency, zero when none.
func FXCurrencyTotals(txs []domain.Transaction, direction Direction) map[string]FXTotal {
	type acc struct {
		total   decimal.Decimal
		rateSum decimal.Decimal
		rates   int64
	}

	want := direction.TransactionType()
	accs := make(map[string]*acc)
	for _, t := range txs {
		if t.Type != want {
			continue
		}
		currency := t.BaseCurrency()
		if currency == "" {
			currency = t.CurrencyValue()
		}
		if currency == "" {
			continue
		}

		a, ok := accs[currency]
		if !ok {
			a = &acc{}
			accs[currency] = a
		}
		a.total = a.total.Add(domain.Num(t.Price))
		if rate := domain.Num(t.Rate); !rate.IsZero() {
			a.rateSum = a.rateSum.Add(rate)
			a.rates++
		}
	}

	out := make(map[string]FXTotal, len(accs))
	for currency, a := range accs {
		avg := decimal.Zero
		if a.rates > 0 {
			avg = a.rateSum.Div(decimal.NewFromInt(a.rates))
		}
		out[currency] = FXTotal{Total: a.total, AverageRate: avg}
	}
	return out
}

// WeightedAverageRate returns Σ(base amount × rate) / Σ(base amount) over the
// rows of the given direction. ok is false when there is no base volume.
func WeightedAverageRate(txs []domain.Transaction, direction Direction) (rate decimal.Decimal, ok bool) {
	want := direction.TransactionType()
	weighted, base := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if t.Type != want {
			continue
		}
		amount := domain.Num(t.FXBaseAmount)
		weighted = weighted.Add(amount.Mul(domain.Num(t.Rate)))
		base = base.Add(amount)
	}
	if base.IsZero() {
		return decimal.Zero, false
	}
	return weighted.Div(base), true
}

// SettledAmount is the converted value of a buy or sell: price * rate, or
// price / rate for the inverse-convention currency. Missing price or rate,
// or a zero divisor, yields zero.
func (a *Aggregator) SettledAmount(t domain.Transaction) decimal.Decimal {
	if !t.Price.Valid || !t.Rate.Valid {
		return decimal.Zero
	}
	price, rate := t.Price.Decimal, t.Rate.Decimal
	if t.CurrencyValue() == a.inverseCurrency {
		if rate.IsZero() {
			return decimal.Zero
		}
		return price.Div(rate)
	}
	return price.Mul(rate)
}

// SettledAmount runs Default.SettledAmount.
func SettledAmount(t domain.Transaction) decimal.Decimal {
	return Default.SettledAmount(t)
}
