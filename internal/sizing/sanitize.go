// Package sizing renders final trade sizes from the streak, regime and
// risk inputs. Every path clamps and sanitizes instead of erroring:
// the trading loop always gets a usable number back.
package sizing

import "math"

// VolatilityFloor is the epsilon guard used wherever reported
// volatility divides a quantity. Documented so tests can target it.
const VolatilityFloor = 1e-4

// SanitizeRatio replaces a non-finite ratio with the given fallback.
// Untrusted telemetry must never push NaN through a multiplier chain.
func SanitizeRatio(x, fallback float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fallback
	}
	return x
}

// SanitizeVolatility floors a reported volatility so it can safely
// divide. Zero, negative and non-finite readings all hit the floor.
func SanitizeVolatility(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < VolatilityFloor {
		return VolatilityFloor
	}
	return v
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
