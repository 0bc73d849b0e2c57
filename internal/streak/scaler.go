// Package streak tracks consecutive win/loss runs and derives a bounded
// position-size multiplier from them. All transitions are pure functions
// over domain.StreakState so a session can be rebuilt by folding the
// trade-outcome stream.
package streak

import (
	"fmt"

	"position-sizing-engine/internal/domain"
)

// DecayStep is how far the multiplier moves toward 1.0 per evaluation
// tick while no streak is active.
const DecayStep = 0.05

// ApplyOutcome advances the state machine for one closed trade.
// A win zeroes the loss counter and vice versa; breakeven follows the
// loss path. A multiplier step fires only when the run length crosses
// into a new multiple of the configured threshold, so re-observing an
// unchanged count can never re-trigger, and each observed outcome steps
// at most once.
func ApplyOutcome(s domain.StreakState, isWin bool, cfg domain.Configuration) domain.StreakState {
	if isWin {
		s.ConsecutiveWins++
		s.ConsecutiveLosses = 0
		s.LastLossCount = 0
		if s.ConsecutiveWins >= cfg.WinsToIncrease &&
			s.ConsecutiveWins/cfg.WinsToIncrease > s.LastWinCount/cfg.WinsToIncrease {
			s.StreakMultiplier = clamp(s.StreakMultiplier+cfg.IncreaseStep, cfg.MinMultiplier, cfg.MaxMultiplier)
			s.LastWinCount = s.ConsecutiveWins
		}
		return s
	}

	s.ConsecutiveLosses++
	s.ConsecutiveWins = 0
	s.LastWinCount = 0
	if s.ConsecutiveLosses >= cfg.LossesToDecrease &&
		s.ConsecutiveLosses/cfg.LossesToDecrease > s.LastLossCount/cfg.LossesToDecrease {
		s.StreakMultiplier = clamp(s.StreakMultiplier-cfg.DecreaseStep, cfg.MinMultiplier, cfg.MaxMultiplier)
		s.LastLossCount = s.ConsecutiveLosses
	}
	return s
}

// Decay moves the multiplier one step toward 1.0. Applied once per
// evaluation tick, and only while no streak is active, so a broken
// streak eases back to baseline instead of snapping.
func Decay(s domain.StreakState) domain.StreakState {
	if s.ConsecutiveWins != 0 || s.ConsecutiveLosses != 0 {
		return s
	}
	switch {
	case s.StreakMultiplier > 1.0:
		s.StreakMultiplier = s.StreakMultiplier - DecayStep
		if s.StreakMultiplier < 1.0 {
			s.StreakMultiplier = 1.0
		}
	case s.StreakMultiplier < 1.0:
		s.StreakMultiplier = s.StreakMultiplier + DecayStep
		if s.StreakMultiplier > 1.0 {
			s.StreakMultiplier = 1.0
		}
	}
	return s
}

// Reset clears the counters but keeps the multiplier, which then decays
// back to 1.0 over subsequent ticks.
func Reset(s domain.StreakState) domain.StreakState {
	s.ConsecutiveWins = 0
	s.ConsecutiveLosses = 0
	s.LastWinCount = 0
	s.LastLossCount = 0
	return s
}

// Performance labels the current run for display text only.
func Performance(s domain.StreakState) string {
	switch {
	case s.ConsecutiveWins >= 2:
		return domain.PerformanceWinning
	case s.ConsecutiveLosses >= 2:
		return domain.PerformanceLosing
	default:
		return domain.PerformanceNeutral
	}
}

// Reason renders the streak contribution for recommendation text.
// Returns "" when the streak has no effect.
func Reason(s domain.StreakState) string {
	if s.StreakMultiplier == 1.0 {
		return ""
	}
	if s.ConsecutiveWins > 0 {
		return fmt.Sprintf("%d-win streak scales size by %.2fx", s.ConsecutiveWins, s.StreakMultiplier)
	}
	if s.ConsecutiveLosses > 0 {
		return fmt.Sprintf("%d-loss streak scales size by %.2fx", s.ConsecutiveLosses, s.StreakMultiplier)
	}
	return fmt.Sprintf("streak multiplier easing back to baseline at %.2fx", s.StreakMultiplier)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
