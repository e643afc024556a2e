// Package directory builds the paginated customer list with per-customer
// transaction activity.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"golang.org/x/sync/errgroup"
)

// SortMode orders the directory.
type SortMode string

const (
	// SortRecentTransactions orders by transaction count, then latest
	// transaction, then creation time, all descending.
	SortRecentTransactions SortMode = "recent-transactions"
	// SortRecentCustomers orders by last update (or creation) descending.
	SortRecentCustomers SortMode = "recent-customers"
	// SortName orders by name, case-insensitively.
	SortName SortMode = "name"
)

// DefaultPerPage is the page size used when a query does not set one.
const DefaultPerPage = 10

// MaxPerPage caps the page size a caller can ask for.
const MaxPerPage = 100

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	switch m {
	case SortRecentTransactions, SortRecentCustomers, SortName:
		return true
	}
	return false
}

// Query selects and orders a page of the directory.
type Query struct {
	Search  string
	From    *civil.Date
	To      *civil.Date
	Sort    SortMode
	Page    int
	PerPage int
}

// Entry is one customer in the directory.
type Entry struct {
	Customer           domain.Customer `json:"customer"`
	TotalTransactions  int             `json:"total_transactions"`
	WindowTransactions int             `json:"window_transactions"`
	LatestTransaction  *time.Time      `json:"latest_transaction,omitempty"`
}

// Page is a slice of the sorted directory.
type Page struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

// Directory lists customers from storage.
type Directory struct {
	customers    store.CustomerStore
	transactions store.TransactionStore
	agg          *aggregator.Aggregator
}

// New creates a Directory. agg decides the calendar day of a transaction; nil uses aggregator.Default.
func New(customers store.CustomerStore, transactions store.TransactionStore, agg *aggregator.Aggregator) *Directory {
	if agg == nil {
		agg = aggregator.Default
	}
	return &Directory{customers: customers, transactions: transactions, agg: agg}
}

// List loads customers and transactions and returns the requested page.
func (d *Directory) List(ctx context.Context, q Query) (*Page, error) {
	if err := aggregator.ValidateRange(q.From, q.To); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	var (
		customers []domain.Customer
		txs       []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = d.customers.ListCustomers(gctx)
		if err != nil {
			return fmt.Errorf("List: list customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = d.transactions.ListTransactions(gctx, store.TransactionQuery{})
		if err != nil {
			return fmt.Errorf("List: list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := Build(d.agg, customers, txs, q)
	return &page, nil
}

// Build applies q to already loaded rows.
func Build(agg *aggregator.Aggregator, customers []domain.Customer, txs []domain.Transaction, q Query) Page {
	byName := make(map[string][]domain.Transaction)
	for _, t := range txs {
		byName[t.CustomerName] = append(byName[t.CustomerName], t)
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	windowed := q.From != nil || q.To != nil
	window := aggregator.Filter{DateFrom: q.From, DateTo: q.To}

	entries := make([]Entry, 0, len(customers))
	for _, c := range customers {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}

		own := byName[c.Name]
		e := Entry{
			Customer:           c,
			TotalTransactions:  len(own),
			WindowTransactions: len(own),
		}
		if windowed {
			e.WindowTransactions = len(agg.ApplyFilter(own, window))
			if e.WindowTransactions == 0 {
				continue
			}
		}
		for _, t := range own {
			if e.LatestTransaction == nil || t.CreatedAt.After(*e.LatestTransaction) {
				latest := t.CreatedAt
				e.LatestTransaction = &latest
			}
		}
		entries = append(entries, e)
	}

	sortEntries(entries, q.Sort)
	return paginate(entries, q.Page, q.PerPage)
}

func sortEntries(entries []Entry, mode SortMode) {
	var less func(a, b Entry) bool
	switch mode {
	case SortRecentCustomers:
		less = func(a, b Entry) bool {
			return a.Customer.LastTouched().After(b.Customer.LastTouched())
		}
	case SortName:
		less = func(a, b Entry) bool {
			return strings.ToLower(a.Customer.Name) < strings.ToLower(b.Customer.Name)
		}
	default:
		less = func(a, b Entry) bool {
			if a.TotalTransactions != b.TotalTransactions {
				return a.TotalTransactions > b.TotalTransactions
			}
			switch {
			case a.LatestTransaction != nil && b.LatestTransaction != nil:
				if !a.LatestTransaction.Equal(*b.LatestTransaction) {
					return a.LatestTransaction.After(*b.LatestTransaction)
				}
			case a.LatestTransaction != nil:
				return true
			case b.LatestTransaction != nil:
				return false
			}
			return a.Customer.CreatedAt.After(b.Customer.CreatedAt)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})
}

func paginate(entries []Entry, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	if page <= 0 {
		page = 1
	}

	total := len(entries)
	totalPages := (total + perPage - 1) / perPage

	// Pages past the end are empty. Checked before multiplying so it cannot overflow.
	start := total
	if page <= totalPages {
		start = (page - 1) * perPage
	}
	end := start + min(perPage, total-start)

	return Page{
		Entries:    entries[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}
