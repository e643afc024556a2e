package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of the BigQuery NUMERIC type.
const numericScale = 9

func fromNullString(s bigquery.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.StringVal
	return &v
}

func toNullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func nullIfEmpty(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func decimalFromRat(r *big.Rat) decimal.NullDecimal {
	if r == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigRat(r, numericScale))
}

func ratFromDecimal(d decimal.NullDecimal) *big.Rat {
	if !d.Valid {
		return nil
	}
	return d.Decimal.Rat()
}
