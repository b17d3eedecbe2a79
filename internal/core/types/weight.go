// Package types provides common value types shared by domain packages.
package types

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Weight is a mass in kilograms with full decimal precision.
// It encodes as a plain JSON number and accepts numbers or numeric strings.
type Weight struct {
	decimal.Decimal
}

// Kg creates a Weight from a float.
// WARNING: Use ParseWeight for values coming from user input.
func Kg(f float64) Weight {
	return Weight{decimal.NewFromFloat(f)}
}

// ParseWeight creates a Weight from a decimal string.
func ParseWeight(s string) (Weight, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Weight{}, err
	}
	return Weight{d}, nil
}

// KgPtr is a convenience for optional weights in literals and tests.
func KgPtr(f float64) *Weight {
	w := Kg(f)
	return &w
}

// Float64 returns the weight as float64 for KPI arithmetic.
func (w Weight) Float64() float64 {
	f, _ := w.Decimal.Float64()
	return f
}

// MulInt multiplies the weight by a head count.
func (w Weight) MulInt(n int) Weight {
	return Weight{w.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// DivInt divides the weight by a head count. Caller guarantees n != 0.
func (w Weight) DivInt(n int) Weight {
	return Weight{w.Decimal.Div(decimal.NewFromInt(int64(n)))}
}

// MarshalJSON encodes Weight as JSON number (not string).
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.Decimal.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (w *Weight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		w.Decimal = decimal.Zero
		return nil
	}
	return w.Decimal.UnmarshalJSON(data)
}
