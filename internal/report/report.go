// Package report loads the rows behind the customer and company reports and
// runs them through the aggregator.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Report is a rendered aggregate plus the context a viewer needs.
type Report struct {
	// Customer is nil for the company-wide report.
	Customer *domain.Customer `json:"customer,omitempty"`

	Result aggregator.Result `json:"result"`

	// Currencies lays net totals out against the canonical currency list.
	Currencies []aggregator.CurrencyLine `json:"currencies"`

	// Settled maps each buy or sell transaction id to its settled amount.
	Settled map[string]decimal.Decimal `json:"settled"`

	// SettledIn maps the same ids to the currency the amount is settled in.
	SettledIn map[string]string `json:"settled_in"`

	WeightedBuyRate  *decimal.Decimal `json:"weighted_buy_rate,omitempty"`
	WeightedSellRate *decimal.Decimal `json:"weighted_sell_rate,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Scope returns the customer name, or "company" for the company-wide report.
func (r *Report) Scope() string {
	if r.Customer != nil {
		return r.Customer.Name
	}
	return "company"
}

// Service builds reports from the store.
type Service struct {
	customers    store.CustomerStore
	transactions store.TransactionStore
	currencies   store.CurrencyStore
	agg          *aggregator.Aggregator
	localLabel   string
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocalCurrencyLabel sets the settlement currency shown for rows without
// currency_final. Empty keeps domain.DefaultLocalCurrencyLabel.
func WithLocalCurrencyLabel(label string) Option {
	return func(s *Service) {
		s.localLabel = label
	}
}

// New creates a Service. A nil aggregator uses aggregator.Default.
func New(customers store.CustomerStore, transactions store.TransactionStore, currencies store.CurrencyStore, agg *aggregator.Aggregator, opts ...Option) *Service {
	if agg == nil {
		agg = aggregator.Default
	}
	s := &Service{
		customers:    customers,
		transactions: transactions,
		currencies:   currencies,
		agg:          agg,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Customer builds the report of one customer. The filter's customer name is
// replaced by the customer's own.
func (s *Service) Customer(ctx context.Context, customerID string, f aggregator.Filter) (*Report, error) {
	if err := aggregator.ValidateRange(f.DateFrom, f.DateTo); err != nil {
		return nil, fmt.Errorf("Customer: %w", err)
	}

	c, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("Customer: get customer: %w", err)
	}
	f.CustomerName = c.Name

	r, err := s.build(ctx, store.TransactionQuery{CustomerName: c.Name}, f)
	if err != nil {
		return nil, fmt.Errorf("Customer: %w", err)
	}
	r.Customer = c
	return r, nil
}

// Company builds the company-wide report over every customer.
func (s *Service) Company(ctx context.Context, f aggregator.Filter) (*Report, error) {
	if err := aggregator.ValidateRange(f.DateFrom, f.DateTo); err != nil {
		return nil, fmt.Errorf("Company: %w", err)
	}

	r, err := s.build(ctx, store.TransactionQuery{CustomerName: f.CustomerName}, f)
	if err != nil {
		return nil, fmt.Errorf("Company: %w", err)
	}
	return r, nil
}

func (s *Service) build(ctx context.Context, q store.TransactionQuery, f aggregator.Filter) (*Report, error) {
	log := logger.FromContext(ctx)

	var (
		txs        []domain.Transaction
		currencies []domain.Currency
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.ListTransactions(gctx, q)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		currencies, err = s.currencies.ListCurrencies(gctx)
		if err != nil {
			return fmt.Errorf("list currencies: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := s.agg.Aggregate(txs, f)
	r := &Report{
		Result:      result,
		Currencies:  aggregator.MergeCurrencies(result.Totals, domain.CurrencyNames(currencies)),
		Settled:     make(map[string]decimal.Decimal),
		SettledIn:   make(map[string]string),
		GeneratedAt: s.now(),
	}
	for _, t := range result.Transactions {
		if t.Type == domain.TypeBuy || t.Type == domain.TypeSellTo {
			r.Settled[t.ID] = s.agg.SettledAmount(t)
			r.SettledIn[t.ID] = t.SettlementCurrency(s.localLabel)
		}
	}
	if rate, ok := aggregator.WeightedAverageRate(result.Transactions, aggregator.DirectionBuy); ok {
		r.WeightedBuyRate = &rate
	}
	if rate, ok := aggregator.WeightedAverageRate(result.Transactions, aggregator.DirectionSell); ok {
		r.WeightedSellRate = &rate
	}

	log.Debug().
		Str("customer_name", f.CustomerName).
		Int("loaded", len(txs)).
		Int("matched", len(result.Transactions)).
		Msg("Report built")

	return r, nil
}
