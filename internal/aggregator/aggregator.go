// Package aggregator reduces a list of transactions and a report filter into
// the counts and currency totals shown by the customer and company reports.
//
// All functions are pure. Missing numeric columns count as zero so a report
// always renders, even over partial data.
package aggregator

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultInverseCurrency is the currency whose rates are quoted the other way
// round: its settled amount is price / rate instead of price * rate.
const DefaultInverseCurrency = "رممبي"

// TypeTransfer is the filter type that selects Transfer-category rows of any type.
const TypeTransfer = "transfer"

// ErrFilterInvalid is returned by ValidateRange when the start date is after the end date.
var ErrFilterInvalid = errors.New("date from is after date to")

// Direction selects one side of FX activity.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// TransactionType returns the transaction type recorded for the direction.
func (d Direction) TransactionType() domain.TransactionType {
	if d == DirectionSell {
		return domain.TypeSellTo
	}
	return domain.TypeBuy
}

// Filter narrows the transactions a report covers. Zero values disable a dimension.
type Filter struct {
	CustomerName string      `json:"customer_name,omitempty"`
	DateFrom     *civil.Date `json:"date_from,omitempty"`
	DateTo       *civil.Date `json:"date_to,omitempty"`
	Currency     string      `json:"currency,omitempty"`
	Account      string      `json:"account,omitempty"`
	// Type is one of entry, exit, buy, sell_to or transfer.
	Type string `json:"type,omitempty"`
	// LenientCategory lets rows without a category satisfy the category
	// requirement of a type, as the company report does.
	LenientCategory bool `json:"lenient_category,omitempty"`
}

// CurrencyTotals holds straight (non-FX) deposit and withdrawal sums per currency.
type CurrencyTotals struct {
	Deposits    map[string]decimal.Decimal `json:"deposits"`
	Withdrawals map[string]decimal.Decimal `json:"withdrawals"`
	Net         map[string]decimal.Decimal `json:"net"`
}

// FXTotal is the summed price and mean rate of one currency's buys or sells.
type FXTotal struct {
	Total       decimal.Decimal `json:"total"`
	AverageRate decimal.Decimal `json:"average_rate"`
}

// Result is everything a report view needs.
type Result struct {
	Filter       Filter                         `json:"filter"`
	Transactions []domain.Transaction           `json:"transactions"`
	Counts       map[domain.TransactionType]int `json:"counts"`
	Totals       CurrencyTotals                 `json:"totals"`
	Buy          map[string]FXTotal             `json:"buy"`
	Sell         map[string]FXTotal             `json:"sell"`
}

// Aggregator carries the few conventions that differ between deployments.
type Aggregator struct {
	inverseCurrency string
	location        *time.Location
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInverseCurrency sets the currency settled as price / rate.
func WithInverseCurrency(currency string) Option {
	return func(a *Aggregator) {
		if currency != "" {
			a.inverseCurrency = currency
		}
	}
}

// WithLocation sets the time zone used to turn created_at into a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.location = loc
		}
	}
}

// New creates an Aggregator. Without options it uses DefaultInverseCurrency and UTC.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		inverseCurrency: DefaultInverseCurrency,
		location:        time.UTC,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Default is the Aggregator used by the package-level functions.
var Default = New()

// InverseCurrency returns the configured inverse-convention currency.
func (a *Aggregator) InverseCurrency() string {
	return a.inverseCurrency
}

// Aggregate filters txs and computes every view over the result. Input order is kept.
func (a *Aggregator) Aggregate(txs []domain.Transaction, f Filter) Result {
	filtered := a.ApplyFilter(txs, f)
	return Result{
		Filter:       f,
		Transactions: filtered,
		Counts:       CountByType(filtered),
		Totals:       CurrencyNetTotalsWith(filtered, f.LenientCategory),
		Buy:          FXCurrencyTotals(filtered, DirectionBuy),
		Sell:         FXCurrencyTotals(filtered, DirectionSell),
	}
}

// Aggregate runs Default.Aggregate.
func Aggregate(txs []domain.Transaction, f Filter) Result {
	return Default.Aggregate(txs, f)
}

// ValidateRange reports ErrFilterInvalid when both bounds are set and from is after to.
func ValidateRange(from, to *civil.Date) error {
	if from != nil && to != nil && from.After(*to) {
		return ErrFilterInvalid
	}
	return nil
}
