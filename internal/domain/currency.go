package domain

// Currency is a row of the canonical currencies table used to order and
// complete report totals.
type Currency struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Symbol string `json:"symbol,omitempty"`
}

// CurrencyNames returns the display names in table order.
func CurrencyNames(cs []Currency) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}
