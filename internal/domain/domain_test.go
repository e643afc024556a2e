package domain

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCustomer_CloneDoesNotAlias(t *testing.T) {
	updated := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	c := Customer{
		ID:        "c1",
		Name:      "Ali",
		Phones:    []string{"+218911234567"},
		Email:     Str("ali@example.com"),
		Notes:     Str("vip"),
		UpdatedAt: &updated,
	}

	clone := c.Clone()
	clone.Phones[0] = "changed"
	*clone.Email = "changed"
	*clone.Notes = "changed"
	*clone.UpdatedAt = time.Time{}

	if c.Phones[0] != "+218911234567" || *c.Email != "ali@example.com" || *c.Notes != "vip" || !c.UpdatedAt.Equal(updated) {
		t.Errorf("original mutated through clone: %+v", c)
	}
}

func TestCustomer_LastTouched(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	if got := (Customer{CreatedAt: created}).LastTouched(); !got.Equal(created) {
		t.Errorf("LastTouched() = %v, want created", got)
	}
	if got := (Customer{CreatedAt: created, UpdatedAt: &updated}).LastTouched(); !got.Equal(updated) {
		t.Errorf("LastTouched() = %v, want updated", got)
	}
}

func TestCustomerPatch_RoundTrip(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	target := Customer{
		ID:                "c1",
		Name:              "Ali",
		Phones:            []string{"+218911234567"},
		Email:             Str("ali@example.com"),
		Status:            CustomerActive,
		EnabledCurrencies: []string{"USD"},
		CreatedAt:         created,
	}
	other := Customer{
		ID:                "c1",
		Name:              "Someone else",
		Notes:             Str("to be cleared"),
		Status:            CustomerInactive,
		EnabledCurrencies: []string{"EUR"},
		CreatedAt:         created,
	}

	got := PatchFromCustomer(target, now).Apply(other)

	if got.Name != target.Name || !reflect.DeepEqual(got.Phones, target.Phones) || got.Status != target.Status {
		t.Errorf("Apply() = %+v, want fields of %+v", got, target)
	}
	if got.Notes != nil {
		t.Errorf("Notes = %q, want cleared", *got.Notes)
	}
	if got.Email == nil || *got.Email != "ali@example.com" {
		t.Errorf("Email = %v", got.Email)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}
	// Columns outside the patch belong to the record being patched.
	if !reflect.DeepEqual(got.EnabledCurrencies, []string{"EUR"}) || !got.CreatedAt.Equal(created) {
		t.Errorf("unpatched columns changed: %+v", got)
	}
}

func TestFormFromCustomer(t *testing.T) {
	tests := []struct {
		name string
		c    Customer
		want CustomerForm
	}{
		{
			name: "no phones gives one blank field",
			c:    Customer{Name: "Ali", Status: CustomerActive},
			want: CustomerForm{Name: "Ali", Phones: []string{""}, Status: CustomerActive},
		},
		{
			name: "optional columns copied",
			c:    Customer{Name: "Ali", Phones: []string{"1", "2"}, Email: Str("a@b.co"), Notes: Str("n"), Status: CustomerInactive},
			want: CustomerForm{Name: "Ali", Phones: []string{"1", "2"}, Email: "a@b.co", Notes: "n", Status: CustomerInactive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormFromCustomer(tt.c); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FormFromCustomer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransaction_SettlementCurrency(t *testing.T) {
	tests := []struct {
		name  string
		tx    Transaction
		label string
		want  string
	}{
		{name: "currency_final wins", tx: Transaction{CurrencyFinal: "USD"}, label: "LYD", want: "USD"},
		{name: "configured label", tx: Transaction{}, label: "LYD", want: "LYD"},
		{name: "default label", tx: Transaction{}, want: DefaultLocalCurrencyLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.SettlementCurrency(tt.label); got != tt.want {
				t.Errorf("SettlementCurrency() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransaction_Accessors(t *testing.T) {
	var empty Transaction
	if empty.CategoryValue() != "" || empty.CurrencyValue() != "" || empty.HasFXPair() {
		t.Errorf("empty transaction accessors = %q %q %v", empty.CategoryValue(), empty.CurrencyValue(), empty.HasFXPair())
	}

	fx := Transaction{Category: Cat(CategoryFX), FXQuoteCurrency: Str("EUR")}
	if fx.CategoryValue() != CategoryFX || !fx.HasFXPair() || fx.QuoteCurrency() != "EUR" || fx.BaseCurrency() != "" {
		t.Errorf("fx accessors wrong: %+v", fx)
	}

	if !Num(decimal.NullDecimal{}).IsZero() {
		t.Error("Num of a missing value should be zero")
	}
	if got := Num(Dec(2.5)); !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Num(Dec(2.5)) = %s", got)
	}
}

func TestActor_Label(t *testing.T) {
	if got := (Actor{ID: "u1"}).Label(); got != "u1" {
		t.Errorf("Label() = %q, want u1", got)
	}
	if got := (Actor{ID: "u1", Email: "ops@example.com"}).Label(); got != "ops@example.com" {
		t.Errorf("Label() = %q, want email", got)
	}
}

func TestCustomerStatus_Valid(t *testing.T) {
	for _, s := range []CustomerStatus{CustomerActive, CustomerInactive} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if CustomerStatus("archived").Valid() {
		t.Error("archived should be invalid")
	}
}

func TestCurrencyNames(t *testing.T) {
	got := CurrencyNames([]Currency{{Name: "USD"}, {Name: "EUR"}})
	if !reflect.DeepEqual(got, []string{"USD", "EUR"}) {
		t.Errorf("CurrencyNames() = %v", got)
	}
}
