package regime

import "fmt"

// Multiplier interpolates from 1.0 (no effect) at the confidence floor
// to the configured regime target at full confidence. Below the floor
// the regime has no effect at all, so small noisy deviations cannot
// cause size churn. Unknown labels behave as CHOP.
func Multiplier(label string, confidence float64, targets map[string]float64, floor float64) float64 {
	if confidence < floor {
		return 1.0
	}
	target, ok := targets[label]
	if !ok {
		target = 1.0
	}
	if floor >= 1 {
		return target
	}
	scale := (confidence - floor) / (1 - floor)
	if scale > 1 {
		scale = 1
	}
	return 1.0 + (target-1.0)*scale
}

// Reason renders the regime contribution for recommendation text.
// Returns "" when the regime has no effect.
func Reason(label string, confidence, multiplier float64) string {
	if multiplier == 1.0 {
		return ""
	}
	return fmt.Sprintf("%s regime at %.0f%% confidence scales size by %.2fx", label, confidence*100, multiplier)
}
