package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/dvloznov/fx-backoffice/internal/store/memory"
	"github.com/shopspring/decimal"
)

func seededStore() *memory.Store {
	s := memory.NewStore()
	s.PutCustomer(domain.Customer{ID: "c1", Name: "Ali", Status: domain.CustomerActive})
	s.PutCustomer(domain.Customer{ID: "c2", Name: "Omar", Status: domain.CustomerActive})
	s.PutCurrencies(
		domain.Currency{ID: "1", Name: "USD"},
		domain.Currency{ID: "2", Name: "EUR"},
		domain.Currency{ID: "3", Name: "GBP"},
	)
	s.PutTransactions(
		domain.Transaction{ID: "t1", Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Currency: domain.Str("USD"),
			Amount: domain.Dec(100), Fee: domain.Dec(5), CustomerName: "Ali", CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		domain.Transaction{ID: "t2", Type: domain.TypeExit, Category: domain.Cat(domain.CategoryWithdrawal), Currency: domain.Str("USD"),
			Amount: domain.Dec(40), CustomerName: "Ali", CreatedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)},
		domain.Transaction{ID: "t3", Type: domain.TypeBuy, Category: domain.Cat(domain.CategoryFX), Currency: domain.Str("EUR"),
			Price: domain.Dec(200), Rate: domain.Dec(1.1), FXBaseAmount: domain.Dec(200),
			CustomerName: "Ali", CreatedAt: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)},
		domain.Transaction{ID: "t4", Type: domain.TypeEntry, Currency: domain.Str("EUR"), Amount: domain.Dec(30),
			CustomerName: "Omar", CreatedAt: time.Date(2025, 3, 6, 10, 0, 0, 0, time.UTC)},
	)
	return s
}

func TestService_Customer(t *testing.T) {
	s := seededStore()
	svc := New(s, s, s, nil)

	r, err := svc.Customer(context.Background(), "c1", aggregator.Filter{CustomerName: "ignored"})
	if err != nil {
		t.Fatalf("Customer failed: %v", err)
	}

	if r.Customer == nil || r.Customer.Name != "Ali" {
		t.Fatalf("Customer = %+v, want Ali", r.Customer)
	}
	if r.Scope() != "Ali" {
		t.Errorf("Scope() = %q, want Ali", r.Scope())
	}
	if got := len(r.Result.Transactions); got != 3 {
		t.Errorf("len(Transactions) = %d, want 3", got)
	}
	if got := r.Result.Totals.Net["USD"]; !got.Equal(decimal.NewFromInt(65)) {
		t.Errorf("Net[USD] = %s, want 65", got)
	}

	if len(r.Currencies) != 3 || r.Currencies[0].Currency != "USD" || r.Currencies[2].Currency != "GBP" {
		t.Errorf("Currencies = %+v, want USD, EUR, GBP lines", r.Currencies)
	}
	if !r.Currencies[2].Net.IsZero() {
		t.Errorf("GBP net = %s, want 0", r.Currencies[2].Net)
	}

	if got := r.Settled["t3"]; !got.Equal(decimal.NewFromInt(220)) {
		t.Errorf("Settled[t3] = %s, want 220", got)
	}
	if _, ok := r.Settled["t1"]; ok {
		t.Error("entry rows should have no settled amount")
	}
	if got := r.SettledIn["t3"]; got != domain.DefaultLocalCurrencyLabel {
		t.Errorf("SettledIn[t3] = %q, want %q", got, domain.DefaultLocalCurrencyLabel)
	}
	if r.WeightedBuyRate == nil || !r.WeightedBuyRate.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("WeightedBuyRate = %v, want 1.1", r.WeightedBuyRate)
	}
	if r.WeightedSellRate != nil {
		t.Errorf("WeightedSellRate = %v, want nil", r.WeightedSellRate)
	}
}

func TestService_Customer_NotFound(t *testing.T) {
	s := seededStore()
	svc := New(s, s, s, nil)

	_, err := svc.Customer(context.Background(), "missing", aggregator.Filter{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_InvalidRange(t *testing.T) {
	s := seededStore()
	svc := New(s, s, s, nil)

	f := aggregator.Filter{
		DateFrom: &civil.Date{Year: 2025, Month: 3, Day: 10},
		DateTo:   &civil.Date{Year: 2025, Month: 3, Day: 1},
	}
	if _, err := svc.Company(context.Background(), f); !errors.Is(err, aggregator.ErrFilterInvalid) {
		t.Errorf("Company error = %v, want ErrFilterInvalid", err)
	}
	if _, err := svc.Customer(context.Background(), "c1", f); !errors.Is(err, aggregator.ErrFilterInvalid) {
		t.Errorf("Customer error = %v, want ErrFilterInvalid", err)
	}
}

func TestService_Company(t *testing.T) {
	s := seededStore()
	svc := New(s, s, s, aggregator.New())

	r, err := svc.Company(context.Background(), aggregator.Filter{Currency: "EUR", LenientCategory: true})
	if err != nil {
		t.Fatalf("Company failed: %v", err)
	}
	if r.Customer != nil || r.Scope() != "company" {
		t.Errorf("company report should have no customer, got %+v", r.Customer)
	}
	if got := len(r.Result.Transactions); got != 2 {
		t.Errorf("len(Transactions) = %d, want 2 (t3, t4)", got)
	}
	// t4 has no category; the lenient company view still counts it as a deposit.
	if got := r.Result.Totals.Deposits["EUR"]; !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Deposits[EUR] = %s, want 30", got)
	}
}

func TestService_LocalCurrencyLabel(t *testing.T) {
	s := seededStore()
	svc := New(s, s, s, nil, WithLocalCurrencyLabel("LYD"))

	r, err := svc.Customer(context.Background(), "c1", aggregator.Filter{})
	if err != nil {
		t.Fatalf("Customer() error = %v", err)
	}
	if got := r.SettledIn["t3"]; got != "LYD" {
		t.Errorf("SettledIn[t3] = %q, want LYD", got)
	}
}
