package sizing

import "position-sizing-engine/internal/domain"

// RiskInputs are the telemetry readings the volatility-driven path
// consumes. All fields are treated as untrusted numerics.
type RiskInputs struct {
	RecentVolatility float64 // realized volatility of recent returns
	WinRate          float64 // fraction of recent trades won
	CurrentDrawdown  float64 // decline from equity peak, as a fraction
}

// Time-to-target estimates are clamped to a displayable range since a
// near-zero volatility reading would otherwise blow the estimate up.
const (
	minTimeToProfitMinutes = 1.0
	maxTimeToProfitMinutes = 600.0
)

// RiskAdjusted sizes a position so the expected volatility-driven move
// yields the configured target profit, then shades it by recent
// performance. Independent of the streak path; used as the smart
// default when streak scaling is not wanted.
func RiskAdjusted(in RiskInputs, cfg domain.Configuration) domain.RiskRecommendation {
	vol := SanitizeVolatility(in.RecentVolatility)
	winRate := SanitizeRatio(in.WinRate, 0.5)
	drawdown := SanitizeRatio(in.CurrentDrawdown, 0)

	riskMult := riskMultiplier(winRate, drawdown)

	raw := cfg.TargetProfit / vol * riskMult
	adjusted := Clamp(raw, cfg.RiskMinSize, cfg.RiskMaxSize)

	return domain.RiskRecommendation{
		AdjustedSize:         domain.Round2(adjusted),
		RiskMultiplier:       riskMult,
		ExpectedTimeToProfit: timeToProfit(cfg.TargetProfit, adjusted, cfg.AvgMovePerMinute),
		RiskLevel:            riskLevel(vol, drawdown),
	}
}

// riskMultiplier de-risks into drawdowns faster than it re-risks on a
// good win rate.
func riskMultiplier(winRate, drawdown float64) float64 {
	mult := 1.0
	switch {
	case drawdown > 0.10:
		mult *= 0.50
	case drawdown > 0.05:
		mult *= 0.75
	}
	switch {
	case winRate >= 0.60:
		mult *= 1.20
	case winRate >= 0.55:
		mult *= 1.10
	case winRate < 0.40:
		mult *= 0.80
	}
	return mult
}

// timeToProfit estimates how many minutes of typical price movement
// are needed for the position to earn the target.
func timeToProfit(targetProfit, size, avgMovePerMinute float64) float64 {
	if size <= 0 || avgMovePerMinute <= 0 {
		return maxTimeToProfitMinutes
	}
	requiredMove := targetProfit / size
	minutes := requiredMove / avgMovePerMinute
	return Clamp(minutes, minTimeToProfitMinutes, maxTimeToProfitMinutes)
}

func riskLevel(vol, drawdown float64) string {
	switch {
	case vol > 0.05 || drawdown > 0.10:
		return domain.RiskLevelHigh
	case vol < 0.02 && drawdown < 0.05:
		return domain.RiskLevelLow
	default:
		return domain.RiskLevelMedium
	}
}
