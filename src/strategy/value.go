package strategy

import "math"

// Value is an indicator reading that may be undefined, for example an EMA before
// its seed bar or a ratio over a zero close.
type Value struct {
	V  float64
	OK bool
}

// Some wraps v; non-finite input collapses to an undefined value.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// None is the undefined value.
func None() Value { return Value{} }

// Or returns the wrapped number, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.OK {
		return fallback
	}
	return v.V
}

// Mul scales the value by f; undefined stays undefined.
func (v Value) Mul(f float64) Value {
	if !v.OK {
		return v
	}
	return Some(v.V * f)
}
