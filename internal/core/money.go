// Package core provides money parsing and handling utilities.
//
// Amounts are kept as exact decimals everywhere. Only the display helpers
// truncate to whole rupees.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPrefixes = []string{"₹", "INR", "Rs.", "Rs", "rs.", "rs"}

// ParseAmount converts a ledger amount cell to an exact decimal.
//
// It accepts a leading sign, an optional currency prefix and thousands
// separators. Empty or non-numeric cells are rejected with ErrInvalidAmount.
//
// Examples:
//   ParseAmount("1200")       -> 1200
//   ParseAmount("-45.50")     -> -45.5
//   ParseAmount("₹ 1,200.75") -> 1200.75
//   ParseAmount("Rs.-300")    -> -300
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatRupees renders the display value of an amount, e.g. "4700".
func FormatRupees(d decimal.Decimal) string {
	return d.Truncate(0).String()
}
