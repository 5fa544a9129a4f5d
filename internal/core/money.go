// Package core provides money parsing and handling utilities.
//
// This file contains the strict amount parser used at the ingestion boundary
// and the dollar formatter used by every presentation surface.
package core

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Bounds on amounts accepted from a statement. Values outside them are
// treated as unparseable.
const (
	maxAmountLen     = 64
	maxAmountScale   = 12 // digits after the decimal point
	maxIntegerDigits = 20
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a statement cell to a decimal amount.
//
// Only plain numeric text is accepted: an optional sign, digits, an optional
// fractional part and an optional exponent. Currency symbols and thousands
// separators are rejected, as is anything that is not a finite number.
// Amounts longer than 64 characters, with more than 12 fractional digits or
// with more than 20 integer digits are rejected as well.
//
// Examples:
//   ParseAmount("12.34")  -> 12.34, nil
//   ParseAmount(" -30 ")  -> -30, nil
//   ParseAmount("$5")     -> 0, ErrInvalidAmount
//   ParseAmount("1,000")  -> 0, ErrInvalidAmount
//   ParseAmount("1e300")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLen {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	exp := int(d.Exponent())
	if exp < -maxAmountScale || d.NumDigits()+exp > maxIntegerDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatDollars renders an amount as "$1,234.56", rounding half away from
// zero to cents. Negative amounts are rendered as "-$12.00".
func FormatDollars(d decimal.Decimal) string {
	neg := d.IsNegative()
	r := d.Abs().Round(2)
	whole := r.Truncate(0)
	cents := r.Sub(whole).StringFixed(2) // "0.xx"
	var digits string
	if whole.LessThanOrEqual(maxInt64) {
		digits = printer.Sprintf("%d", whole.IntPart())
	} else {
		digits = humanize.BigComma(whole.BigInt())
	}
	s := "$" + digits + cents[1:]
	if neg && !r.IsZero() {
		return "-" + s
	}
	return s
}
