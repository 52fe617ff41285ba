package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxCents is the largest amount the ledger accepts. Digests canonicalize
// numbers as float64, so larger values would no longer be distinct.
const MaxCents int64 = 1 << 53

// ToCents converts a currency amount (CHF) to minor units. The amount must
// be positive and have at most two decimal places.
func ToCents(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, &AmountError{Input: amount.String(), Reason: "must be positive"}
	}
	cents := amount.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, &AmountError{Input: amount.String(), Reason: "more than two decimal places"}
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return 0, &AmountError{Input: amount.String(), Reason: "out of range"}
	}
	return cents.IntPart(), nil
}

// ParseCents parses user input like "12.50", "12,50" or "CHF 12.-".
func ParseCents(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	clean := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(raw), "CHF"))
	clean = strings.TrimSuffix(clean, ".-")
	clean = strings.ReplaceAll(clean, "'", "")
	clean = strings.Replace(clean, ",", ".", 1)
	if clean == "" {
		return 0, &AmountError{Input: s, Reason: "empty"}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, &AmountError{Input: s, Reason: "not a number"}
	}
	return ToCents(d)
}

// FormatCents renders minor units as "12.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
