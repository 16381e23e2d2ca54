package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Amounts are persisted as integer cents so
// sums and comparisons stay exact.
type Money struct {
	Cents int64
}

var (
	// MinAmount is the smallest accepted expense amount (0.01).
	MinAmount = Money{Cents: 1}
	// MaxAmount is the largest storable amount, the range of a DECIMAL(10,2) column.
	MaxAmount = Money{Cents: 9_999_999_999}

	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromFloat rounds f half away from zero to two decimal places.
// Values outside the int64 cents range return ErrAmountOutOfRange.
func MoneyFromFloat(f float64) (Money, error) {
	if !isFinite(f) {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// MoneyFromDecimal rounds d half away from zero to two decimal places.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, ErrAmountOutOfRange
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseMoney parses a decimal string such as "12.34" or "12,34".
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// Decimal returns the amount as a two-place decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount for JSON/GraphQL output.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CentsFloor converts a bound to cents rounding toward -Inf, so an inclusive
// "amount <= bound" check becomes "cents <= CentsFloor(bound)".
func CentsFloor(f float64) int64 {
	return saturate(decimal.NewFromFloat(f).Shift(2).Floor())
}

// CentsCeil converts a bound to cents rounding toward +Inf, so an inclusive
// "amount >= bound" check becomes "cents >= CentsCeil(bound)".
func CentsCeil(f float64) int64 {
	return saturate(decimal.NewFromFloat(f).Shift(2).Ceil())
}

// saturate clamps an integral cents value to the int64 range.
func saturate(cents decimal.Decimal) int64 {
	switch {
	case cents.GreaterThan(maxCents):
		return math.MaxInt64
	case cents.LessThan(minCents):
		return math.MinInt64
	}
	return cents.IntPart()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
