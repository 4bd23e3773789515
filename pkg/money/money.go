// Package money converts between integer minor units and decimal amounts.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const minorExponent = 2

var ErrInvalidAmount = errors.New("invalid_amount")

// Decimal returns the minor-unit amount as a decimal value.
func Decimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorExponent)
}

// Format renders a minor-unit amount with two fraction digits, prefixed by
// the currency code when one is given.
func Format(minor int64, currency string) string {
	out := Decimal(minor).StringFixed(minorExponent)
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return out
	}
	return currency + " " + out
}

// ParseMinor parses a decimal string such as "35.50" into minor units.
// Amounts with more than two fraction digits are rejected.
func ParseMinor(raw string) (int64, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	scaled := value.Shift(minorExponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// Multiply returns quantity * unit in minor units.
func Multiply(unit int64, quantity int64) int64 {
	return decimal.NewFromInt(unit).Mul(decimal.NewFromInt(quantity)).IntPart()
}
