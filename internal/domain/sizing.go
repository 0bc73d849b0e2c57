package domain

import "math"

// SizeRecommendation is the combined streak-and-regime sizing output.
type SizeRecommendation struct {
	FinalSize          float64 // rounded to cents
	BaseSize           float64 // baseline the multiplier scaled from
	StreakMultiplier   float64
	RegimeMultiplier   float64
	CombinedMultiplier float64 // clamped product
	IsAtMinimum        bool
	IsAtMaximum        bool
	Reason             string // human-readable explanation
	RecentPerformance  string // winning | losing | neutral
}

// RiskRecommendation is the volatility-driven sizing output.
type RiskRecommendation struct {
	AdjustedSize         float64
	RiskMultiplier       float64
	ExpectedTimeToProfit float64 // minutes, clamped
	RiskLevel            string  // low | medium | high
}

// Risk level constants
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// ProfitBreakdown is the fee-aware profit projection for one candidate trade.
type ProfitBreakdown struct {
	ExitPrice   float64
	GrossProfit float64
	Fees        float64
	NetProfit   float64
}

// SizingDecision is one row of the append-only audit log: either a
// recommendation served or a trade outcome applied, with the multiplier
// breakdown in effect at that moment.
type SizingDecision struct {
	DecisionID         string // deterministic hash
	UserID             string
	EventType          string // RECOMMENDATION | TRADE_OUTCOME | CONFIG_UPDATE | RESET
	Timestamp          int64  // ms
	FinalSize          float64
	BaseSize           float64
	StreakMultiplier   float64
	RegimeMultiplier   float64
	CombinedMultiplier float64
	ConsecutiveWins    int
	ConsecutiveLosses  int
	RegimeLabel        string
	Confidence         float64
	CompoundSize       float64
	Profit             float64 // zero for non-outcome events
	Reason             string
}

// Decision event type constants
const (
	EventRecommendation = "RECOMMENDATION"
	EventTradeOutcome   = "TRADE_OUTCOME"
	EventConfigUpdate   = "CONFIG_UPDATE"
	EventReset          = "RESET"
)

// Round2 rounds a money amount to cents. Applied only at the final
// presentation step, never to intermediate multipliers.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
