package sizing

import (
	"strings"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/regime"
	"position-sizing-engine/internal/streak"
)

// Combine merges the streak and regime multipliers into one clamped
// factor and renders the final size from the given baseline. Pure:
// identical inputs always produce the identical recommendation.
func Combine(base float64, s domain.StreakState, sig domain.RegimeSignal, cfg domain.Configuration) domain.SizeRecommendation {
	confidence := regime.Confidence(sig.Deviation)
	regimeMult := regime.Multiplier(sig.Label, confidence, cfg.RegimeMultipliers, cfg.RegimeConfidenceFloor)
	streakMult := SanitizeRatio(s.StreakMultiplier, 1.0)

	combined := Clamp(streakMult*regimeMult, cfg.MinMultiplier, cfg.MaxMultiplier)

	rec := domain.SizeRecommendation{
		FinalSize:          domain.Round2(base * combined),
		BaseSize:           base,
		StreakMultiplier:   streakMult,
		RegimeMultiplier:   regimeMult,
		CombinedMultiplier: combined,
		IsAtMinimum:        combined == cfg.MinMultiplier,
		IsAtMaximum:        combined == cfg.MaxMultiplier,
		Reason:             buildReason(s, sig.Label, confidence, regimeMult),
		RecentPerformance:  streak.Performance(s),
	}
	return rec
}

func buildReason(s domain.StreakState, label string, confidence, regimeMult float64) string {
	var parts []string
	if r := streak.Reason(s); r != "" {
		parts = append(parts, r)
	}
	if r := regime.Reason(label, confidence, regimeMult); r != "" {
		parts = append(parts, r)
	}
	if len(parts) == 0 {
		return "baseline sizing"
	}
	return strings.Join(parts, "; ")
}
