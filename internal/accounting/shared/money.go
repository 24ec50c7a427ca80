package shared

import "github.com/shopspring/decimal"

// Epsilon is the currency minor-unit tolerance used for balance checks.
var Epsilon = decimal.RequireFromString("0.01")

// WithinEpsilon reports |a-b| < Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// ParseAmount converts a textual amount; empty strings are zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
