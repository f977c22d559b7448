package domain

import (
	"github.com/shopspring/decimal"
)

var (
	// MinAmount is the smallest amount accepted, compared before rounding.
	MinAmount = decimal.RequireFromString("0.01")
	// MaxAmount is the largest value a numeric(12,2) amount column holds.
	MaxAmount = decimal.RequireFromString("99999999.99")
)

// NormalizeAmount checks the amount bounds and rounds half-up to two decimals.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if d.LessThan(MinAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	rounded := d.Round(2)
	if rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, NewValidationError(ErrCodeInvalidAmount, "amount must not exceed 99999999.99")
	}
	return rounded, nil
}
