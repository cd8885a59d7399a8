// Package money provides fixed-point monetary arithmetic in minor units
// (cents). Amounts cross the JSON boundary as decimal numbers and are
// converted exactly once at the edge; everything past that point is int64
// cents, so split sums can be compared for exact equality.
package money

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidAmount   = errors.New("amount must be a finite number")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO 4217 code")
)

// Cents is a monetary amount in minor units of its currency.
type Cents int64

// FromFloat converts a decimal amount (e.g. 33.34) to cents, rounding
// half away from zero. NaN and infinities are rejected.
func FromFloat(amount float64) (Cents, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return Cents(math.Round(amount * 100)), nil
}

// Float64 converts cents back to a decimal amount for the JSON boundary.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// ValidCurrency reports whether code is a plausible ISO 4217 code:
// exactly three ASCII letters. It does not check the code against the
// registry; unknown-but-well-formed codes are allowed everywhere and
// simply have no symbol when formatted.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		ch := code[i]
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}

// symbols maps the currency codes the app commonly sees to display
// symbols. Codes missing here fall back to the raw ISO code.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"ZAR": "R",
	"AUD": "A$",
	"CAD": "C$",
}

// Format renders cents with the currency's symbol, e.g. Format(3334,
// "USD") == "$33.34". Unknown codes print the amount followed by the raw
// code: "33.34 XXX".
func Format(c Cents, code string) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	whole := c / 100
	frac := c % 100
	if sym, ok := symbols[code]; ok {
		return fmt.Sprintf("%s%s%d.%02d", sign, sym, whole, frac)
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, whole, frac, code)
}

// FormatFloat validates and formats a decimal amount. It is the
// presentation entry point for values that have not yet been through
// FromFloat.
func FormatFloat(amount float64, code string) (string, error) {
	c, err := FromFloat(amount)
	if err != nil {
		return "", err
	}
	if !ValidCurrency(code) {
		return "", ErrInvalidCurrency
	}
	return Format(c, code), nil
}
