package aggregator

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: dd}
}

func at(y int, m time.Month, dd, h int) time.Time {
	return time.Date(y, m, dd, h, 0, 0, 0, time.UTC)
}

func ids(txs []domain.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func sampleTransactions() []domain.Transaction {
	return []domain.Transaction{
		{ID: "t1", Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Currency: domain.Str("USD"),
			Amount: domain.Dec(100), Fee: domain.Dec(5), CustomerName: "Ali", CreatedAt: at(2025, 3, 1, 23),
			ToAccountName: domain.Str("Main")},
		{ID: "t2", Type: domain.TypeExit, Category: domain.Cat(domain.CategoryWithdrawal), Currency: domain.Str("USD"),
			Amount: domain.Dec(40), CustomerName: "Ali", CreatedAt: at(2025, 3, 2, 0), FromAccountName: domain.Str("Main")},
		{ID: "t3", Type: domain.TypeBuy, Category: domain.Cat(domain.CategoryFX), Currency: domain.Str("EUR"),
			FXBaseCurrency: domain.Str("EUR"), FXQuoteCurrency: domain.Str("LYD"),
			Price: domain.Dec(200), Rate: domain.Dec(1.1), CustomerName: "Ali", CreatedAt: at(2025, 3, 5, 10)},
		{ID: "t4", Type: domain.TypeSellTo, Category: domain.Cat(domain.CategoryFX), Currency: domain.Str("USD"),
			Price: domain.Dec(50), Rate: domain.Dec(4.8), CustomerName: "Omar", CreatedAt: at(2025, 3, 6, 8),
			DeliverTo: "Branch 2"},
		{ID: "t5", Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryTransfer), Currency: domain.Str("EUR"),
			Amount: domain.Dec(10), CustomerName: "Ali", CreatedAt: at(2025, 3, 7, 12)},
		{ID: "t6", Type: domain.TypeEntry, Currency: domain.Str("EUR"), Amount: domain.Dec(70),
			CustomerName: "Ali", CreatedAt: at(2025, 3, 8, 12)},
	}
}

func TestCurrencyNetTotals_USDScenario(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Currency: domain.Str("USD"), Amount: domain.Dec(100), Fee: domain.Dec(5)},
		{Type: domain.TypeExit, Category: domain.Cat(domain.CategoryWithdrawal), Currency: domain.Str("USD"), Amount: domain.Dec(40), Fee: domain.Dec(0)},
	}

	got := CurrencyNetTotals(txs)

	if len(got.Deposits) != 1 || !got.Deposits["USD"].Equal(d("105")) {
		t.Errorf("deposits = %v, want USD 105", got.Deposits)
	}
	if len(got.Withdrawals) != 1 || !got.Withdrawals["USD"].Equal(d("40")) {
		t.Errorf("withdrawals = %v, want USD 40", got.Withdrawals)
	}
	if len(got.Net) != 1 || !got.Net["USD"].Equal(d("65")) {
		t.Errorf("net = %v, want USD 65", got.Net)
	}
}

func TestCurrencyNetTotals_Exclusions(t *testing.T) {
	txs := []domain.Transaction{
		// FX pair rows belong to FX totals.
		{Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Currency: domain.Str("EUR"),
			FXBaseCurrency: domain.Str("EUR"), Amount: domain.Dec(10)},
		// Zero totals are skipped entirely.
		{Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Currency: domain.Str("GBP")},
		// No currency.
		{Type: domain.TypeEntry, Category: domain.Cat(domain.CategoryDeposit), Amount: domain.Dec(10)},
		// Uncategorised entry is ignored in strict mode.
		{Type: domain.TypeEntry, Currency: domain.Str("TRY"), Amount: domain.Dec(30)},
		// Only withdrawals for this currency.
		{Type: domain.TypeExit, Category: domain.Cat(domain.CategoryWithdrawal), Currency: domain.Str("AED"), Fee: domain.Dec(2)},
	}

	got := CurrencyNetTotals(txs)

	for _, c := range []string{"EUR", "GBP", "TRY"} {
		if _, ok := got.Net[c]; ok {
			t.Errorf("currency %s should be absent, got net %v", c, got.Net)
		}
	}
	if !got.Net["AED"].Equal(d("-2")) {
		t.Errorf("net AED = %s, want -2", got.Net["AED"])
	}

	lenient := CurrencyNetTotalsWith(txs, true)
	if !lenient.Deposits["TRY"].Equal(d("30")) {
		t.Errorf("lenient deposits TRY = %s, want 30", lenient.Deposits["TRY"])
	}
}

func TestCurrencyNetTotals_NetIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	currencies := []string{"USD", "EUR", "TRY", "AED"}
	types := []domain.TransactionType{domain.TypeEntry, domain.TypeExit, domain.TypeBuy}
	cats := []*domain.Category{nil, domain.Cat(domain.CategoryDeposit), domain.Cat(domain.CategoryWithdrawal)}

	for round := 0; round < 50; round++ {
		var txs []domain.Transaction
		for i := 0; i < 30; i++ {
			tx := domain.Transaction{
				Type:     types[rng.Intn(len(types))],
				Category: cats[rng.Intn(len(cats))],
				Currency: domain.Str(currencies[rng.Intn(len(currencies))]),
			}
			if rng.Intn(4) > 0 {
				tx.Amount = domain.Dec(float64(rng.Intn(10000)) / 100)
			}
			if rng.Intn(3) == 0 {
				tx.Fee = domain.Dec(float64(rng.Intn(500)) / 100)
			}
			txs = append(txs, tx)
		}

		for _, lenient := range []bool{false, true} {
			got := CurrencyNetTotalsWith(txs, lenient)
			for _, m := range []map[string]decimal.Decimal{got.Deposits, got.Withdrawals} {
				for c := range m {
					want := got.Deposits[c].Sub(got.Withdrawals[c])
					if !got.Net[c].Equal(want) {
						t.Fatalf("round %d: net[%s] = %s, want %s", round, c, got.Net[c], want)
					}
				}
			}
			if len(got.Net) > len(got.Deposits)+len(got.Withdrawals) {
				t.Fatalf("round %d: net has currencies absent from both maps", round)
			}
		}
	}
}

func TestFXCurrencyTotals(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TypeBuy, FXBaseCurrency: domain.Str("EUR"), Currency: domain.Str("LYD"), Price: domain.Dec(200), Rate: domain.Dec(1.1)},
		{Type: domain.TypeBuy, Currency: domain.Str("EUR"), Price: domain.Dec(100), Rate: domain.Dec(1.3)},
		{Type: domain.TypeBuy, Currency: domain.Str("EUR"), Price: domain.Dec(50)},
		{Type: domain.TypeBuy, Currency: domain.Str("USD"), Price: domain.Dec(30), Rate: domain.Dec(0)},
		{Type: domain.TypeBuy, Price: domain.Dec(999), Rate: domain.Dec(9)},
		{Type: domain.TypeSellTo, Currency: domain.Str("EUR"), Price: domain.Dec(70), Rate: domain.Dec(5)},
	}

	buy := FXCurrencyTotals(txs, DirectionBuy)
	if len(buy) != 2 {
		t.Fatalf("buy currencies = %v, want EUR and USD", buy)
	}
	if !buy["EUR"].Total.Equal(d("350")) {
		t.Errorf("EUR total = %s, want 350", buy["EUR"].Total)
	}
	if !buy["EUR"].AverageRate.Equal(d("1.2")) {
		t.Errorf("EUR average rate = %s, want 1.2", buy["EUR"].AverageRate)
	}
	if !buy["USD"].AverageRate.IsZero() {
		t.Errorf("USD average rate = %s, want 0 when no rate recorded", buy["USD"].AverageRate)
	}

	sell := FXCurrencyTotals(txs, DirectionSell)
	if len(sell) != 1 || !sell["EUR"].Total.Equal(d("70")) || !sell["EUR"].AverageRate.Equal(d("5")) {
		t.Errorf("sell = %v, want EUR 70 @ 5", sell)
	}
}

func TestSettledAmount(t *testing.T) {
	buy := domain.Transaction{Type: domain.TypeBuy, Currency: domain.Str("EUR"), Price: domain.Dec(200), Rate: domain.Dec(1.1)}
	if got := SettledAmount(buy); !got.Equal(d("220")) {
		t.Errorf("SettledAmount(EUR) = %s, want 220", got)
	}

	inverse := buy
	inverse.Currency = domain.Str(DefaultInverseCurrency)
	if got := SettledAmount(inverse).Round(2); !got.Equal(d("181.82")) {
		t.Errorf("SettledAmount(inverse) = %s, want 181.82", got)
	}

	custom := New(WithInverseCurrency("CNY"))
	inverse.Currency = domain.Str("CNY")
	if got := custom.SettledAmount(inverse).Round(2); !got.Equal(d("181.82")) {
		t.Errorf("custom SettledAmount = %s, want 181.82", got)
	}
	if got := custom.SettledAmount(buy); !got.Equal(d("220")) {
		t.Errorf("custom SettledAmount(EUR) = %s, want 220", got)
	}

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"missing price", domain.Transaction{Currency: domain.Str("EUR"), Rate: domain.Dec(2)}},
		{"missing rate", domain.Transaction{Currency: domain.Str("EUR"), Price: domain.Dec(2)}},
		{"zero divisor", domain.Transaction{Currency: domain.Str(DefaultInverseCurrency), Price: domain.Dec(2), Rate: domain.Dec(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SettledAmount(tt.tx); !got.IsZero() {
				t.Errorf("SettledAmount() = %s, want 0", got)
			}
		})
	}
}

func TestApplyFilter(t *testing.T) {
	txs := sampleTransactions()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter", filter: Filter{}, want: []string{"t1", "t2", "t3", "t4", "t5", "t6"}},
		{name: "customer", filter: Filter{CustomerName: "Omar"}, want: []string{"t4"}},
		{name: "inclusive day bounds", filter: Filter{DateFrom: day(2025, 3, 1), DateTo: day(2025, 3, 5)}, want: []string{"t1", "t2", "t3"}},
		{name: "single day", filter: Filter{DateFrom: day(2025, 3, 2), DateTo: day(2025, 3, 2)}, want: []string{"t2"}},
		{name: "open start", filter: Filter{DateTo: day(2025, 3, 1)}, want: []string{"t1"}},
		{name: "from after to", filter: Filter{DateFrom: day(2025, 3, 5), DateTo: day(2025, 3, 1)}, want: []string{}},
		{name: "currency matches fx leg", filter: Filter{Currency: "LYD"}, want: []string{"t3"}},
		{name: "currency", filter: Filter{Currency: "USD"}, want: []string{"t1", "t2", "t4"}},
		{name: "account any side", filter: Filter{Account: "Main"}, want: []string{"t1", "t2"}},
		{name: "account deliver to", filter: Filter{Account: "Branch 2"}, want: []string{"t4"}},
		{name: "entry requires deposit", filter: Filter{Type: "entry"}, want: []string{"t1"}},
		{name: "entry lenient", filter: Filter{Type: "entry", LenientCategory: true}, want: []string{"t1", "t6"}},
		{name: "exit", filter: Filter{Type: "exit"}, want: []string{"t2"}},
		{name: "buy", filter: Filter{Type: "buy"}, want: []string{"t3"}},
		{name: "sell_to", filter: Filter{Type: "sell_to"}, want: []string{"t4"}},
		{name: "transfer by category", filter: Filter{Type: TypeTransfer}, want: []string{"t5"}},
		{name: "combined", filter: Filter{CustomerName: "Ali", Currency: "EUR", DateFrom: day(2025, 3, 6)}, want: []string{"t5", "t6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(ApplyFilter(txs, tt.filter))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyFilter_Location(t *testing.T) {
	tripoli := time.FixedZone("EET", 2*60*60)
	a := New(WithLocation(tripoli))

	// 2025-03-01 23:00 UTC is already 2 March in Tripoli.
	got := ids(a.ApplyFilter(sampleTransactions(), Filter{DateFrom: day(2025, 3, 2), DateTo: day(2025, 3, 2)}))
	if !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("ApplyFilter() = %v, want [t1 t2]", got)
	}
}

func TestApplyFilter_Commutative(t *testing.T) {
	txs := sampleTransactions()
	byCurrency := Filter{Currency: "EUR"}
	byDate := Filter{DateFrom: day(2025, 3, 5), DateTo: day(2025, 3, 7)}
	both := Filter{Currency: "EUR", DateFrom: byDate.DateFrom, DateTo: byDate.DateTo}

	currencyThenDate := ids(ApplyFilter(ApplyFilter(txs, byCurrency), byDate))
	dateThenCurrency := ids(ApplyFilter(ApplyFilter(txs, byDate), byCurrency))
	combined := ids(ApplyFilter(txs, both))

	if !reflect.DeepEqual(currencyThenDate, dateThenCurrency) {
		t.Errorf("currency→date %v != date→currency %v", currencyThenDate, dateThenCurrency)
	}
	if !reflect.DeepEqual(currencyThenDate, combined) {
		t.Errorf("sequential %v != combined %v", currencyThenDate, combined)
	}
}

func TestCountByType(t *testing.T) {
	got := CountByType(sampleTransactions())
	want := map[domain.TransactionType]int{
		domain.TypeEntry:  3,
		domain.TypeExit:   1,
		domain.TypeBuy:    1,
		domain.TypeSellTo: 1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountByType() = %v, want %v", got, want)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	txs := sampleTransactions()
	f := Filter{CustomerName: "Ali"}

	first := Aggregate(txs, f)
	second := Aggregate(txs, f)

	if !reflect.DeepEqual(first, second) {
		t.Error("Aggregate() is not idempotent")
	}
	if first.Counts[domain.TypeEntry] != 3 {
		t.Errorf("entry count = %d, want 3", first.Counts[domain.TypeEntry])
	}
	if !first.Totals.Net["USD"].Equal(d("65")) {
		t.Errorf("net USD = %s, want 65", first.Totals.Net["USD"])
	}
	if !first.Buy["EUR"].Total.Equal(d("200")) {
		t.Errorf("buy EUR = %s, want 200", first.Buy["EUR"].Total)
	}
	if len(first.Sell) != 0 {
		t.Errorf("sell = %v, want empty for Ali", first.Sell)
	}
}

func TestWeightedAverageRate(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TypeBuy, FXBaseAmount: domain.Dec(100), Rate: domain.Dec(5)},
		{Type: domain.TypeBuy, FXBaseAmount: domain.Dec(300), Rate: domain.Dec(6)},
		{Type: domain.TypeSellTo, FXBaseAmount: domain.Dec(50), Rate: domain.Dec(7)},
	}

	rate, ok := WeightedAverageRate(txs, DirectionBuy)
	if !ok || !rate.Equal(d("5.75")) {
		t.Errorf("buy rate = %s (%v), want 5.75", rate, ok)
	}

	if _, ok := WeightedAverageRate(txs[:2], DirectionSell); ok {
		t.Error("expected no sell rate without sell volume")
	}
}

func TestMergeCurrencies(t *testing.T) {
	totals := CurrencyNetTotals(sampleTransactions())
	lines := MergeCurrencies(totals, []string{"EUR", "USD", "EUR"})

	if len(lines) != 2 {
		t.Fatalf("lines = %v, want EUR and USD", lines)
	}
	if lines[0].Currency != "EUR" || !lines[0].Net.IsZero() {
		t.Errorf("EUR line = %+v, want zero", lines[0])
	}
	if lines[1].Currency != "USD" || !lines[1].Net.Equal(d("65")) || !lines[1].Deposit.Equal(d("105")) {
		t.Errorf("USD line = %+v", lines[1])
	}
}

func TestValidateRange(t *testing.T) {
	if err := ValidateRange(day(2025, 1, 2), day(2025, 1, 1)); err != ErrFilterInvalid {
		t.Errorf("expected ErrFilterInvalid, got %v", err)
	}
	if err := ValidateRange(day(2025, 1, 1), day(2025, 1, 1)); err != nil {
		t.Errorf("same day should be valid, got %v", err)
	}
	if err := ValidateRange(nil, day(2025, 1, 1)); err != nil {
		t.Errorf("open range should be valid, got %v", err)
	}
}

func TestSortNewestFirst(t *testing.T) {
	txs := sampleTransactions()
	SortNewestFirst(txs)
	want := []string{"t6", "t5", "t4", "t3", "t2", "t1"}
	if got := ids(txs); !reflect.DeepEqual(got, want) {
		t.Errorf("SortNewestFirst() = %v, want %v", got, want)
	}
}

func TestValidType(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{"", true},
		{"entry", true},
		{"exit", true},
		{"buy", true},
		{"sell_to", true},
		{TypeTransfer, true},
		{"Entry", false},
		{"refund", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := ValidType(tt.typ); got != tt.want {
				t.Errorf("ValidType(%q) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}
