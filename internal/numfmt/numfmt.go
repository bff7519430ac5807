// Package numfmt renders floats deterministically for audit snapshots,
// WAL payloads, and CLI reports. All formatting is locale-free and
// produces identical bytes for identical inputs on every platform —
// UI display tolerates locale drift, an audit trail does not.
package numfmt

import (
	"math"
	"strconv"
)

// Float renders v with exactly prec digits after the decimal point,
// using '.' as the decimal separator regardless of OS locale. NaN and
// Inf render as the literal tokens "NaN", "+Inf", "-Inf" so a corrupted
// computation is visible in an audit record instead of silently
// formatting as garbage.
func Float(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Money renders v as a 2-decimal amount, the convention used across
// the solve result's currency-denominated fields (profit, cost; ROI
// is a percentage and formatted separately via Percent).
func Money(v float64) string {
	return Float(v, 2)
}

// Percent renders v (already scaled x100, matching ROI's convention)
// as a 2-decimal percentage with a trailing '%'.
func Percent(v float64) string {
	return Float(v, 2) + "%"
}

// Tons renders a route/constraint tonnage to 3 decimals, matching the
// wire format's f64 precision without implying false precision beyond
// what a shipment manifest would carry.
func Tons(v float64) string {
	return Float(v, 3)
}
