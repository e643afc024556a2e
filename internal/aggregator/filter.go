package aggregator

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/domain"
)

// ApplyFilter returns the transactions of txs that pass every set dimension of f,
// in input order. A range whose start is after its end selects nothing.
func (a *Aggregator) ApplyFilter(txs []domain.Transaction, f Filter) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	if ValidateRange(f.DateFrom, f.DateTo) != nil {
		return out
	}
	for _, t := range txs {
		if a.matches(t, f) {
			out = append(out, t)
		}
	}
	return out
}

// ApplyFilter runs Default.ApplyFilter.
func ApplyFilter(txs []domain.Transaction, f Filter) []domain.Transaction {
	return Default.ApplyFilter(txs, f)
}

func (a *Aggregator) matches(t domain.Transaction, f Filter) bool {
	if f.CustomerName != "" && t.CustomerName != f.CustomerName {
		return false
	}

	if f.DateFrom != nil || f.DateTo != nil {
		day := civil.DateOf(t.CreatedAt.In(a.location))
		if f.DateFrom != nil && day.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && day.After(*f.DateTo) {
			return false
		}
	}

	if f.Currency != "" &&
		t.CurrencyValue() != f.Currency &&
		t.BaseCurrency() != f.Currency &&
		t.QuoteCurrency() != f.Currency {
		return false
	}

	if f.Account != "" &&
		deref(t.FromAccountName) != f.Account &&
		deref(t.ToAccountName) != f.Account &&
		t.DeliverTo != f.Account {
		return false
	}

	return matchesType(t, f.Type, f.LenientCategory)
}

// ValidType reports whether typ is a filter type ApplyFilter understands.
// The empty string means no type filter.
func ValidType(typ string) bool {
	switch domain.TransactionType(typ) {
	case "", domain.TypeEntry, domain.TypeExit, domain.TypeBuy, domain.TypeSellTo, TypeTransfer:
		return true
	}
	return false
}

func matchesType(t domain.Transaction, typ string, lenient bool) bool {
	switch typ {
	case "":
		return true
	case TypeTransfer:
		return t.CategoryValue() == domain.CategoryTransfer
	}

	if string(t.Type) != typ {
		return false
	}
	switch domain.TransactionType(typ) {
	case domain.TypeEntry:
		return categoryIs(t, domain.CategoryDeposit, lenient)
	case domain.TypeExit:
		return categoryIs(t, domain.CategoryWithdrawal, lenient)
	case domain.TypeBuy, domain.TypeSellTo:
		return categoryIs(t, domain.CategoryFX, lenient)
	}
	return true
}

func categoryIs(t domain.Transaction, want domain.Category, lenient bool) bool {
	if t.Category == nil {
		return lenient
	}
	return *t.Category == want
}

// SortNewestFirst orders txs by created_at descending, in place.
func SortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
