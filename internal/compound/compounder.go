// Package compound implements the threshold-gated profit-reinvestment
// ratchet. Size only ever grows while compounding is enabled; the one
// path back down is an explicit reset. That asymmetry is intentional
// and tested, not an oversight.
package compound

import (
	"math"

	"position-sizing-engine/internal/domain"
)

// ApplyProfit advances the ratchet for one realized-profit event.
// Pure: the caller owns the state and applies each outcome exactly once.
//
// Losses and zero profits pass through untouched. Profit accrues toward
// the threshold silently; once cumulative profit clears it, a fraction
// of each profit is added to the working size, capped at
// originalSize * maxMultiplier. Disabling compounding freezes growth
// but never shrinks the size already reached.
func ApplyProfit(s domain.CompoundState, profit float64, settings domain.CompoundSettings, now int64) domain.CompoundState {
	if math.IsNaN(profit) || math.IsInf(profit, 0) {
		return s
	}
	if !settings.Enabled || profit <= 0 {
		return s
	}

	s.TotalProfitSeen += profit
	if s.TotalProfitSeen < settings.ThresholdProfit {
		return s
	}

	ceiling := s.OriginalSize * settings.MaxMultiplier
	amount := profit * settings.Percentage
	newSize := s.CurrentSize + amount
	if newSize > ceiling {
		newSize = ceiling
	}
	if newSize <= s.CurrentSize {
		// Already at the ceiling
		s.CurrentMultiplier = currentMultiplier(s)
		s.UpdatedAt = now
		return s
	}

	s.TotalCompounded += newSize - s.CurrentSize
	s.CurrentSize = newSize
	s.CurrentMultiplier = currentMultiplier(s)
	s.UpdatedAt = now
	return s
}

// Reset restores the working size to the original baseline and clears
// the accumulators. The only operation that shrinks the size.
func Reset(s domain.CompoundState, now int64) domain.CompoundState {
	s.CurrentSize = s.OriginalSize
	s.CurrentMultiplier = 1.0
	s.TotalCompounded = 0
	s.TotalProfitSeen = 0
	s.UpdatedAt = now
	return s
}

// Rebase anchors the ratchet to a new baseline after a configuration
// replace. The earned multiplier carries over; the absolute size is
// re-derived from the new base and re-capped.
func Rebase(s domain.CompoundState, newBase float64, settings domain.CompoundSettings, now int64) domain.CompoundState {
	mult := s.CurrentMultiplier
	if mult < 1.0 || math.IsNaN(mult) || math.IsInf(mult, 0) {
		mult = 1.0
	}
	if mult > settings.MaxMultiplier {
		mult = settings.MaxMultiplier
	}
	s.OriginalSize = newBase
	s.CurrentSize = newBase * mult
	s.CurrentMultiplier = mult
	s.UpdatedAt = now
	return s
}

func currentMultiplier(s domain.CompoundState) float64 {
	if s.OriginalSize <= 0 {
		return 1.0
	}
	return s.CurrentSize / s.OriginalSize
}
