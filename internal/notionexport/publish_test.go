package notionexport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/report"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// MockNotionService is a mock implementation of NotionService for testing.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc   func(ctx context.Context, pageID string) error

	created  []notionapi.Properties
	archived []string
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	m.created = append(m.created, properties)
	return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("page-%d", len(m.created)))}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	if m.ArchivePageFunc != nil {
		return m.ArchivePageFunc(ctx, pageID)
	}
	m.archived = append(m.archived, pageID)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport() *report.Report {
	return &report.Report{
		Customer: &domain.Customer{ID: "c1", Name: "Ali"},
		Result: aggregator.Result{
			Filter: aggregator.Filter{
				DateFrom: &civil.Date{Year: 2025, Month: 3, Day: 1},
				DateTo:   &civil.Date{Year: 2025, Month: 3, Day: 31},
			},
			Totals: aggregator.CurrencyTotals{
				Deposits:    map[string]decimal.Decimal{"USD": dec("105"), "CHF": dec("10")},
				Withdrawals: map[string]decimal.Decimal{"USD": dec("40")},
				Net:         map[string]decimal.Decimal{"USD": dec("65"), "CHF": dec("10")},
			},
			Buy:  map[string]aggregator.FXTotal{"EUR": {Total: dec("350"), AverageRate: dec("1.2")}},
			Sell: map[string]aggregator.FXTotal{"USD": {Total: dec("50"), AverageRate: dec("4.8")}},
		},
		Currencies: []aggregator.CurrencyLine{
			{Currency: "USD", Deposit: dec("105"), Withdrawal: dec("40"), Net: dec("65")},
			{Currency: "GBP"},
			{Currency: "EUR"},
		},
		GeneratedAt: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestLines(t *testing.T) {
	lines := Lines(sampleReport())

	want := []string{"USD", "EUR", "CHF"}
	if len(lines) != len(want) {
		t.Fatalf("Lines() = %+v, want currencies %v", lines, want)
	}
	for i, c := range want {
		if lines[i].Currency != c {
			t.Errorf("line[%d] = %s, want %s", i, lines[i].Currency, c)
		}
	}

	usd := lines[0]
	if !usd.Net.Equal(dec("65")) || !usd.SellTotal.Equal(dec("50")) {
		t.Errorf("USD line = %+v", usd)
	}
	if !lines[1].BuyAvgRate.Equal(dec("1.2")) {
		t.Errorf("EUR buy rate = %s, want 1.2", lines[1].BuyAvgRate)
	}
}

func TestReportKey(t *testing.T) {
	r := sampleReport()
	if got, want := ReportKey(r), "Ali | 2025-03-01..2025-03-31"; got != want {
		t.Errorf("ReportKey() = %q, want %q", got, want)
	}

	r.Customer = nil
	r.Result.Filter = aggregator.Filter{}
	if got, want := ReportKey(r), "company | .."; got != want {
		t.Errorf("ReportKey() = %q, want %q", got, want)
	}
}

func pageWithKey(id, key string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			"Report Key": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: key}},
			},
		},
	}
}

func TestPublishReport(t *testing.T) {
	r := sampleReport()
	key := ReportKey(r)

	calls := 0
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if calls == 1 {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{pageWithKey("old-1", key), pageWithKey("other", "Omar | ..")},
					HasMore:    true,
					NextCursor: "next",
				}, nil
			}
			if req.StartCursor != "next" {
				t.Errorf("StartCursor = %q, want next", req.StartCursor)
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{pageWithKey("old-2", key)}}, nil
		},
	}

	ids, err := PublishReport(context.Background(), mock, "db", r)
	if err != nil {
		t.Fatalf("PublishReport failed: %v", err)
	}
	if len(ids) != 3 || len(mock.created) != 3 {
		t.Errorf("created %d pages (%v), want 3", len(mock.created), ids)
	}
	if len(mock.archived) != 2 || mock.archived[0] != "old-1" || mock.archived[1] != "old-2" {
		t.Errorf("archived = %v, want [old-1 old-2]", mock.archived)
	}

	title := mock.created[0]["Currency"].(notionapi.TitleProperty)
	if title.Title[0].Text.Content != "USD" {
		t.Errorf("first page currency = %q, want USD", title.Title[0].Text.Content)
	}
	if net := mock.created[0]["Net"].(notionapi.NumberProperty); net.Number != 65 {
		t.Errorf("Net = %v, want 65", net.Number)
	}
}

func TestPublishReport_Errors(t *testing.T) {
	queryFail := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, errors.New("unauthorized")
		},
	}
	if _, err := PublishReport(context.Background(), queryFail, "db", sampleReport()); err == nil {
		t.Error("expected error when the database query fails")
	}

	createFail := &MockNotionService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("rate limited")
		},
	}
	if _, err := PublishReport(context.Background(), createFail, "db", sampleReport()); err == nil {
		t.Error("expected error when page creation fails")
	}
}
