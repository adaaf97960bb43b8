// Package numeric holds the small pieces of arithmetic shared by the
// atmosphere, motor, aerodynamic and integration code.
package numeric

import "math"

// Lerp interpolates linearly between low and high: low*(1-d) + high*d.
func Lerp(low, high, d float64) float64 {
	return low*(1-d) + high*d
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
