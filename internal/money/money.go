// Package money holds the currency helpers shared by pricing and reporting.
// Amounts are carried as unrounded decimals and rounded only when they leave
// the computation layer.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of decimal places used at output boundaries.
const Places = 2

var (
	printer = message.NewPrinter(language.AmericanEnglish)

	// Whole parts below this are grouped; larger ones are printed as is.
	groupLimit = decimal.NewFromInt(math.MaxInt64)
)

// Round rounds an amount for output.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Times multiplies a unit price by a count.
func Times(unitPrice decimal.Decimal, count int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(count)))
}

// Min returns the smaller amount.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Format renders an amount as a dollar label, e.g. "$1,234.50".
func Format(amount decimal.Decimal) string {
	rounded := Round(amount)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	whole, cents, _ := strings.Cut(rounded.StringFixed(Places), ".")
	if rounded.LessThan(groupLimit) {
		whole = printer.Sprintf("%d", rounded.IntPart())
	}
	return sign + "$" + whole + "." + cents
}
