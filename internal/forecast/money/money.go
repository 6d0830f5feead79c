package money

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromCents converts integer cents into a decimal currency amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// FormatCents renders cents as a fixed two-decimal amount, e.g. "1234.50".
func FormatCents(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// FormatPercent renders a nullable percent with one decimal, "-" when nil.
func FormatPercent(value *float64) string {
	if value == nil {
		return "-"
	}
	return decimal.NewFromFloat(*value).StringFixed(1) + "%"
}

// Float converts cents into a float currency amount for spreadsheet cells.
func Float(cents int64) float64 {
	f, _ := FromCents(cents).Float64()
	return f
}
