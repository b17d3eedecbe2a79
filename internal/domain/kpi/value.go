// Package kpi holds the value types of zootechnical indicators. A metric that
// cannot be computed from the recorded data is "no data", which is distinct
// from zero and encodes as JSON null.
package kpi

import (
	"encoding/json"
	"math"
)

// Value is an optional numeric metric.
type Value struct {
	v  float64
	ok bool
}

// Of returns a computed value. NaN and ±Inf are treated as no data.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// NoData returns the not-computable value.
func NoData() Value {
	return Value{}
}

// Ratio returns num/den, or no data when den is zero.
func Ratio(num, den float64) Value {
	if den == 0 {
		return NoData()
	}
	return Of(num / den)
}

// Percent returns num/den×100, or no data when den is zero.
func Percent(num, den float64) Value {
	if den == 0 {
		return NoData()
	}
	return Of(num / den * 100)
}

// Get returns the value and whether it is defined.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// OK reports whether the value is defined.
func (v Value) OK() bool {
	return v.ok
}

// Or returns the value or the fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.v
}

// Map applies f to a defined value.
func (v Value) Map(f func(float64) float64) Value {
	if !v.ok {
		return v
	}
	return Of(f(v.v))
}

// Times multiplies two values; undefined if either is.
func (v Value) Times(other Value) Value {
	if !v.ok || !other.ok {
		return NoData()
	}
	return Of(v.v * other.v)
}

// Round returns the value rounded to the given number of decimals.
func (v Value) Round(decimals int) Value {
	if !v.ok {
		return v
	}
	p := math.Pow10(decimals)
	return Of(math.Round(v.v*p) / p)
}

// String renders the value for display; no data renders as "-".
func (v Value) String() string {
	if !v.ok {
		return "-"
	}
	b, _ := json.Marshal(v.v)
	return string(b)
}

// MarshalJSON encodes the value as a number, or null when undefined.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NoData()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}

// Mean accumulates an arithmetic mean, ignoring undefined inputs.
type Mean struct {
	sum float64
	n   int
}

// Add includes a defined value.
func (m *Mean) Add(v Value) {
	if f, ok := v.Get(); ok {
		m.sum += f
		m.n++
	}
}

// AddFloat includes a raw number.
func (m *Mean) AddFloat(f float64) {
	m.sum += f
	m.n++
}

// Merge folds another accumulator into m.
func (m *Mean) Merge(other Mean) {
	m.sum += other.sum
	m.n += other.n
}

// Count returns the number of included values.
func (m Mean) Count() int {
	return m.n
}

// Value returns the mean, or no data when nothing was included.
func (m Mean) Value() Value {
	return Ratio(m.sum, float64(m.n))
}
