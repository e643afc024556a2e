package bigquery

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/shopspring/decimal"
)

func TestDatasetTable(t *testing.T) {
	ds := Dataset{ProjectID: "proj", DatasetID: "fx"}
	if got, want := ds.Table(customersTable), "`proj.fx.customers`"; got != want {
		t.Errorf("Table() = %s, want %s", got, want)
	}
}

func TestTransactionRowRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	in := domain.Transaction{
		ID:             "t1",
		Type:           domain.TypeBuy,
		Category:       domain.Cat(domain.CategoryFX),
		CreatedAt:      created,
		Price:          domain.Dec(150),
		Rate:           decimal.NewNullDecimal(decimal.RequireFromString("1.123456789")),
		FXBaseCurrency: domain.Str("EUR"),
		FXBaseAmount:   domain.Dec(125.5),
		CustomerName:   "Ali",
		CurrencyFinal:  "LYD",
	}

	row := TransactionRowFrom(in)
	if row.Amount != nil {
		t.Errorf("Amount = %v, want nil for missing numeric", row.Amount)
	}
	if row.UserID.Valid {
		t.Error("UserID should be NULL when empty")
	}

	out := row.Transaction()
	if out.Type != in.Type || out.CategoryValue() != domain.CategoryFX || !out.CreatedAt.Equal(created) {
		t.Errorf("Transaction() = %+v", out)
	}
	if out.Amount.Valid {
		t.Error("Amount should stay null")
	}
	if !out.Rate.Decimal.Equal(in.Rate.Decimal) {
		t.Errorf("Rate = %s, want %s", out.Rate.Decimal, in.Rate.Decimal)
	}
	if !out.FXBaseAmount.Decimal.Equal(decimal.NewFromFloat(125.5)) {
		t.Errorf("FXBaseAmount = %s, want 125.5", out.FXBaseAmount.Decimal)
	}
	if out.BaseCurrency() != "EUR" || out.QuoteCurrency() != "" {
		t.Errorf("FX pair = %q/%q, want EUR/", out.BaseCurrency(), out.QuoteCurrency())
	}
	if out.CustomerName != "Ali" || out.CurrencyFinal != "LYD" {
		t.Errorf("strings = %q %q", out.CustomerName, out.CurrencyFinal)
	}
}

func TestDecimalFromRat(t *testing.T) {
	if got := decimalFromRat(nil); got.Valid {
		t.Error("nil rat should be a null decimal")
	}
	got := decimalFromRat(big.NewRat(1, 3))
	if want := decimal.RequireFromString("0.333333333"); !got.Decimal.Equal(want) {
		t.Errorf("decimalFromRat(1/3) = %s, want %s", got.Decimal, want)
	}
}

func TestCustomerRow(t *testing.T) {
	updated := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	row := CustomerRow{
		ID:        "c1",
		Name:      "Ali",
		Phones:    []string{"0912345678"},
		Email:     bigquery.NullString{StringVal: "ali@example.ly", Valid: true},
		Status:    "active",
		UpdatedAt: bigquery.NullTimestamp{Timestamp: updated, Valid: true},
	}

	c := row.Customer()
	if c.Email == nil || *c.Email != "ali@example.ly" {
		t.Errorf("Email = %v", c.Email)
	}
	if c.Notes != nil {
		t.Errorf("Notes = %v, want nil", c.Notes)
	}
	if c.UpdatedAt == nil || !c.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", c.UpdatedAt, updated)
	}
	if c.Status != domain.CustomerActive {
		t.Errorf("Status = %q", c.Status)
	}
}

func TestBackupRow(t *testing.T) {
	row := BackupRow{
		ID:         "b1",
		CustomerID: "c1",
		OldData:    bigquery.NullJSON{JSONVal: `{"id":"c1","name":"Old","phones":["0912345678"],"status":"active","created_at":"2024-01-01T00:00:00Z"}`, Valid: true},
		NewData:    bigquery.NullJSON{JSONVal: `{"id":"c1","name":"New","phones":[],"status":"inactive","created_at":"2024-01-01T00:00:00Z"}`, Valid: true},
		ChangedBy:  "u1",
		Reason:     domain.BackupReasonEdit,
	}

	b, err := row.Backup()
	if err != nil {
		t.Fatalf("Backup() failed: %v", err)
	}
	if b.OldData.Name != "Old" || b.NewData.Name != "New" || b.NewData.Status != domain.CustomerInactive {
		t.Errorf("Backup() = %+v", b)
	}
	if b.ChangedByEmail != nil {
		t.Errorf("ChangedByEmail = %v, want nil", b.ChangedByEmail)
	}

	row.NewData.JSONVal = "{"
	if _, err := row.Backup(); err == nil {
		t.Error("expected error for malformed new_data")
	}
}

func TestTransactionsQuery(t *testing.T) {
	ds := Dataset{ProjectID: "p", DatasetID: "d"}

	sql, params := transactionsQuery(ds, store.TransactionQuery{})
	if strings.Contains(sql, "WHERE") || len(params) != 0 {
		t.Errorf("unfiltered query = %q, %d params", sql, len(params))
	}

	sql, params = transactionsQuery(ds, store.TransactionQuery{
		CustomerName: "Ali",
		From:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !strings.Contains(sql, "customer_name = @customer_name") || !strings.Contains(sql, "created_at >= @from_ts") {
		t.Errorf("sql = %q", sql)
	}
	if strings.Contains(sql, "@to_ts") {
		t.Errorf("sql should not constrain to_ts: %q", sql)
	}
	if len(params) != 2 {
		t.Errorf("len(params) = %d, want 2", len(params))
	}
	if !strings.HasSuffix(sql, "ORDER BY created_at DESC") {
		t.Errorf("sql should order newest first: %q", sql)
	}
}
