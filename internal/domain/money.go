package domain

import (
	"fmt"     // Error wrapping
	"strings" // String helpers
	"time"    // Dates and durations

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// DateLayout is the wire format for expense and income dates.
const DateLayout = "2006-01-02"

func init() {
	// The dashboard expects plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// RoundMoney rounds an amount to whole cents (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseMoney parses a decimal string such as "12.34" or "12,34" into a cent-rounded amount.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return RoundMoney(d), nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected %s", ErrValidation, s, DateLayout)
	}
	return TruncateDay(t), nil
}

// TruncateDay drops the clock part of t, keeping its calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
