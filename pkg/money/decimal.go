// Package money holds decimal helpers shared by the ledger and the importer.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned by Parse for text that is not a number
var ErrInvalidAmount = errors.New("invalid amount format")

// FloorAtZero returns d, or zero when d is negative
func FloorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Ptr returns a pointer to a copy of d
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// EqualPtr compares two optional decimals by value. Two nils are equal.
func EqualPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Parse reads an amount as found in bank exports: "1,234.50", "$12",
// "-3.10" or "(45.00)" for a negative value.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "¥", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
