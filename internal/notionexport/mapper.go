package notionexport

import (
	"sort"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/report"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// Line is one currency row of an exported report.
type Line struct {
	Currency    string
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
	Net         decimal.Decimal
	BuyTotal    decimal.Decimal
	BuyAvgRate  decimal.Decimal
	SellTotal   decimal.Decimal
	SellAvgRate decimal.Decimal
}

func (l Line) empty() bool {
	return l.Deposits.IsZero() && l.Withdrawals.IsZero() && l.BuyTotal.IsZero() && l.SellTotal.IsZero()
}

// Lines flattens a report into per-currency rows. Canonical currencies come
// first in list order, then currencies that only appear in FX activity,
// sorted. Rows without any activity are dropped.
func Lines(r *report.Report) []Line {
	var (
		lines []Line
		index = make(map[string]int)
	)
	add := func(currency string) *Line {
		if i, ok := index[currency]; ok {
			return &lines[i]
		}
		index[currency] = len(lines)
		lines = append(lines, Line{Currency: currency})
		return &lines[len(lines)-1]
	}

	for _, c := range r.Currencies {
		l := add(c.Currency)
		l.Deposits, l.Withdrawals, l.Net = c.Deposit, c.Withdrawal, c.Net
	}
	for _, c := range sortedKeys(r.Result.Totals.Net) {
		if _, ok := index[c]; ok {
			continue
		}
		l := add(c)
		l.Deposits = r.Result.Totals.Deposits[c]
		l.Withdrawals = r.Result.Totals.Withdrawals[c]
		l.Net = r.Result.Totals.Net[c]
	}
	for _, c := range sortedKeys(r.Result.Buy) {
		l := add(c)
		l.BuyTotal, l.BuyAvgRate = r.Result.Buy[c].Total, r.Result.Buy[c].AverageRate
	}
	for _, c := range sortedKeys(r.Result.Sell) {
		l := add(c)
		l.SellTotal, l.SellAvgRate = r.Result.Sell[c].Total, r.Result.Sell[c].AverageRate
	}

	out := lines[:0]
	for _, l := range lines {
		if !l.empty() {
			out = append(out, l)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReportKey identifies a report by scope and period so a re-export replaces
// the pages of the previous one.
func ReportKey(r *report.Report) string {
	key := r.Scope() + " | "
	if f := r.Result.Filter.DateFrom; f != nil {
		key += f.String()
	}
	key += ".."
	if t := r.Result.Filter.DateTo; t != nil {
		key += t.String()
	}
	return key
}

// LineToNotionProperties converts a report line to Notion properties.
func LineToNotionProperties(key, scope string, generated time.Time, line Line) notionapi.Properties {
	date := notionapi.Date(generated)
	return notionapi.Properties{
		"Currency": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: line.Currency},
				},
			},
		},
		"Report Key": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: key},
				},
			},
		},
		"Scope": notionapi.SelectProperty{
			Select: notionapi.Option{Name: scope},
		},
		"Generated": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		"Deposits":      number(line.Deposits),
		"Withdrawals":   number(line.Withdrawals),
		"Net":           number(line.Net),
		"Buy Total":     number(line.BuyTotal),
		"Buy Avg Rate":  number(line.BuyAvgRate),
		"Sell Total":    number(line.SellTotal),
		"Sell Avg Rate": number(line.SellAvgRate),
	}
}

func number(d decimal.Decimal) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: d.InexactFloat64()}
}

// extractReportKey reads the Report Key property of a page, "" when absent.
func extractReportKey(page notionapi.Page) string {
	if prop, ok := page.Properties["Report Key"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
