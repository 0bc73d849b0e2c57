// Package regime converts trend-deviation signals into bounded,
// confidence-weighted position-size multipliers.
package regime

import "math"

// SaturationDeviation is the absolute fractional deviation at which
// confidence reaches 1.0: a 1% distance from the trend reference is
// treated as full directional conviction.
const SaturationDeviation = 0.01

// Confidence maps a signed trend deviation to [0, 1].
// Zero deviation means pure chop, confidence 0. Non-finite input is
// treated as no signal.
func Confidence(deviation float64) float64 {
	if math.IsNaN(deviation) || math.IsInf(deviation, 0) {
		return 0
	}
	c := math.Abs(deviation) / SaturationDeviation
	if c > 1 {
		return 1
	}
	return c
}
