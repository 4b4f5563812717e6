package utils

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	billion  = decimal.NewFromInt(1_000_000_000)
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// FormatCurrency renders a dollar amount with a B, M or K suffix,
// e.g. -1234567 becomes "-$1.23M".
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	abs := amount.Abs()

	switch {
	case abs.GreaterThanOrEqual(billion):
		return fmt.Sprintf("%s$%sB", sign, abs.Div(billion).StringFixed(2))
	case abs.GreaterThanOrEqual(million):
		return fmt.Sprintf("%s$%sM", sign, abs.Div(million).StringFixed(2))
	case abs.GreaterThanOrEqual(thousand):
		return fmt.Sprintf("%s$%sK", sign, abs.Div(thousand).StringFixed(2))
	default:
		return fmt.Sprintf("%s$%s", sign, abs.StringFixed(2))
	}
}

// FormatPercent renders a percentage with an explicit sign.
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", pct)
}
