package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of movement recorded by the transaction wizard.
type TransactionType string

const (
	TypeEntry  TransactionType = "entry"
	TypeExit   TransactionType = "exit"
	TypeBuy    TransactionType = "buy"
	TypeSellTo TransactionType = "sell_to"
)

// Category classifies a transaction for reporting. It is nullable in storage.
type Category string

const (
	CategoryDeposit    Category = "Deposit"
	CategoryWithdrawal Category = "Withdrawal"
	CategoryFX         Category = "FX"
	CategoryTransfer   Category = "Transfer"
	CategoryOther      Category = "Other"
)

// DefaultLocalCurrencyLabel is shown as the settlement currency when a
// transaction carries no currency_final.
const DefaultLocalCurrencyLabel = "دينار ليبي"

// Transaction is a single row of the transactions table. Numeric columns are
// nullable; readers treat a missing value as zero.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	Type      TransactionType `json:"type"`
	Category  *Category       `json:"category,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	Amount decimal.NullDecimal `json:"amount"`
	Fee    decimal.NullDecimal `json:"fee"`
	Price  decimal.NullDecimal `json:"price"`
	Rate   decimal.NullDecimal `json:"rate"`

	Currency      *string `json:"currency,omitempty"`
	CurrencyFinal string  `json:"currency_final"`
	FeeCurrency   *string `json:"fee_currency,omitempty"`

	FXBaseCurrency  *string             `json:"fx_base_currency,omitempty"`
	FXQuoteCurrency *string             `json:"fx_quote_currency,omitempty"`
	FXBaseAmount    decimal.NullDecimal `json:"fx_base_amount"`

	CustomerName    string  `json:"customer_name"`
	CountryCity     string  `json:"country_city"`
	DeliverTo       string  `json:"deliver_to,omitempty"`
	FromAccountName *string `json:"from_account_name,omitempty"`
	ToAccountName   *string `json:"to_account_name,omitempty"`
	Treasury        *string `json:"treasury,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// CategoryValue returns the category or "" when absent.
func (t Transaction) CategoryValue() Category {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// CurrencyValue returns the plain currency or "" when absent.
func (t Transaction) CurrencyValue() string {
	return deref(t.Currency)
}

// BaseCurrency returns the FX base currency or "".
func (t Transaction) BaseCurrency() string {
	return deref(t.FXBaseCurrency)
}

// QuoteCurrency returns the FX quote currency or "".
func (t Transaction) QuoteCurrency() string {
	return deref(t.FXQuoteCurrency)
}

// HasFXPair reports whether either leg of an FX base/quote pair is set.
func (t Transaction) HasFXPair() bool {
	return t.BaseCurrency() != "" || t.QuoteCurrency() != ""
}

// SettlementCurrency returns currency_final, falling back to the local label.
func (t Transaction) SettlementCurrency(localLabel string) string {
	if t.CurrencyFinal != "" {
		return t.CurrencyFinal
	}
	if localLabel == "" {
		return DefaultLocalCurrencyLabel
	}
	return localLabel
}

// Num returns the value of a nullable numeric column, zero when missing.
func Num(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// Dec wraps f as a present nullable numeric; handy in tests and seed data.
func Dec(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// Cat returns a pointer to c.
func Cat(c Category) *Category {
	return &c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
