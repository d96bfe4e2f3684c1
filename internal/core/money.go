// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed milliunits (1 currency unit = 1000 milliunits).
// Rounding always goes half-up towards positive infinity, so -1.5 rounds to -1.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MilliunitsPerUnit is the scale between a display amount and its stored form.
const MilliunitsPerUnit = 1000

var (
	half = decimal.New(5, -1)

	maxMilliunits = decimal.NewFromInt(math.MaxInt64)
	minMilliunits = decimal.NewFromInt(math.MinInt64)
)

// roundHalfUp rounds d to an integer, ties going towards positive infinity.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// ToStorageUnits converts a display amount to milliunits.
//
// Examples:
//
//	ToStorageUnits(12.34)   -> 12340
//	ToStorageUnits(-5.0005) -> -5000
//	ToStorageUnits(0.0015)  -> 2
func ToStorageUnits(amount decimal.Decimal) int64 {
	return roundHalfUp(amount.Shift(3))
}

// FromStorageUnits converts milliunits back to a whole display amount.
// The conversion is lossy: fractional units are rounded away, so
// FromStorageUnits(1234) is 1 and FromStorageUnits(1500) is 2.
func FromStorageUnits(milliunits int64) int64 {
	return roundHalfUp(decimal.New(milliunits, -3))
}

// ParseAmount parses a user supplied decimal amount. It accepts an optional
// sign, surrounding whitespace, thousands separators written as spaces and
// either a dot or a comma as the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.ContainsAny(s, ",eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseMilliunits parses s and converts it straight to milliunits. Amounts
// whose milliunits do not fit in an int64 are rejected.
func ParseMilliunits(s string) (int64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if m := d.Shift(3).Add(half).Floor(); m.GreaterThan(maxMilliunits) || m.LessThan(minMilliunits) {
		return 0, ErrInvalidAmount
	}
	return ToStorageUnits(d), nil
}

// FormatMilliunits renders milliunits as a plain decimal string with two
// fractional digits, e.g. -12340 -> "-12.34".
func FormatMilliunits(milliunits int64) string {
	return decimal.New(milliunits, -3).StringFixed(2)
}
