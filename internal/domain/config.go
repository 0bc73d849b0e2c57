package domain

import (
	"errors"
	"fmt"
)

// Configuration holds the per-user position-sizing parameters.
// Persisted externally; edits replace the whole record, never merge.
type Configuration struct {
	UserID string

	// Sizing
	BasePositionSize float64 // unscaled trade notional
	MinMultiplier    float64 // hard lower bound on any combined scaling factor
	MaxMultiplier    float64 // hard upper bound on any combined scaling factor

	// Streak scaling
	WinsToIncrease   int     // consecutive wins that trigger a step up
	LossesToDecrease int     // consecutive losses that trigger a step down
	IncreaseStep     float64 // per-step upward adjustment
	DecreaseStep     float64 // per-step downward adjustment (losses de-risk faster)

	// Regime scaling
	RegimeMultipliers     map[string]float64 // target multiplier per regime label
	RegimeConfidenceFloor float64            // confidence below which regime has no effect

	// Compounding
	Compound CompoundSettings

	// Fees
	FeeSchedule FeeSchedule

	// Risk-adjusted sizing
	RiskMinSize      float64 // lower bound for the volatility-driven path
	RiskMaxSize      float64 // upper bound for the volatility-driven path
	AvgMovePerMinute float64 // typical price move per minute, for time-to-target
	TargetProfit     float64 // profit goal per round trip
}

// CompoundSettings controls threshold-gated profit reinvestment.
type CompoundSettings struct {
	Enabled         bool
	Percentage      float64 // fraction of each profit reinvested
	ThresholdProfit float64 // cumulative profit required before compounding starts
	MaxMultiplier   float64 // hard cap on currentSize / originalSize
}

// FeeSchedule holds exchange fee rates as fractions (0.0005 = 0.05%).
type FeeSchedule struct {
	Maker   float64
	Taker   float64
	Funding float64
}

// Regime label constants
const (
	RegimeBull = "BULL"
	RegimeBear = "BEAR"
	RegimeChop = "CHOP"
)

// Trade direction constants
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// DefaultConfiguration returns the stock configuration for a user.
func DefaultConfiguration(userID string) Configuration {
	return Configuration{
		UserID:           userID,
		BasePositionSize: 100.0,
		MinMultiplier:    0.5,
		MaxMultiplier:    1.5,
		WinsToIncrease:   3,
		LossesToDecrease: 2,
		IncreaseStep:     0.10,
		DecreaseStep:     0.20,
		RegimeMultipliers: map[string]float64{
			RegimeBull: 1.2,
			RegimeBear: 0.8,
			RegimeChop: 1.0,
		},
		RegimeConfidenceFloor: 0.30,
		Compound: CompoundSettings{
			Enabled:         false,
			Percentage:      0.50,
			ThresholdProfit: 50.0,
			MaxMultiplier:   2.0,
		},
		FeeSchedule: FeeSchedule{
			Maker:   0.0002,
			Taker:   0.0005,
			Funding: 0.0001,
		},
		RiskMinSize:      200.0,
		RiskMaxSize:      500.0,
		AvgMovePerMinute: 0.001,
		TargetProfit:     5.0,
	}
}

// ErrInvalidConfig marks a configuration rejected at save time.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects out-of-range configurations before they are saved.
// Sizing itself never validates; a stored configuration is always usable.
func (c Configuration) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidConfig)
	}
	if c.BasePositionSize <= 0 {
		return fmt.Errorf("%w: base_position_size must be positive, got %v", ErrInvalidConfig, c.BasePositionSize)
	}
	if c.MinMultiplier <= 0 {
		return fmt.Errorf("%w: min_multiplier must be positive, got %v", ErrInvalidConfig, c.MinMultiplier)
	}
	if c.MinMultiplier > c.MaxMultiplier {
		return fmt.Errorf("%w: min_multiplier %v exceeds max_multiplier %v", ErrInvalidConfig, c.MinMultiplier, c.MaxMultiplier)
	}
	if c.WinsToIncrease < 1 || c.LossesToDecrease < 1 {
		return fmt.Errorf("%w: streak thresholds must be at least 1", ErrInvalidConfig)
	}
	if c.IncreaseStep < 0 || c.DecreaseStep < 0 {
		return fmt.Errorf("%w: streak steps must be non-negative", ErrInvalidConfig)
	}
	if c.RegimeConfidenceFloor < 0 || c.RegimeConfidenceFloor >= 1 {
		return fmt.Errorf("%w: regime_confidence_floor must be in [0,1), got %v", ErrInvalidConfig, c.RegimeConfidenceFloor)
	}
	if c.Compound.Percentage < 0 || c.Compound.Percentage > 1 {
		return fmt.Errorf("%w: compound percentage must be in [0,1], got %v", ErrInvalidConfig, c.Compound.Percentage)
	}
	if c.Compound.MaxMultiplier < 1 {
		return fmt.Errorf("%w: compound max_multiplier must be at least 1, got %v", ErrInvalidConfig, c.Compound.MaxMultiplier)
	}
	if c.Compound.ThresholdProfit < 0 {
		return fmt.Errorf("%w: compound threshold_profit must be non-negative", ErrInvalidConfig)
	}
	if c.FeeSchedule.Maker < 0 || c.FeeSchedule.Taker < 0 || c.FeeSchedule.Funding < 0 {
		return fmt.Errorf("%w: fee rates must be non-negative", ErrInvalidConfig)
	}
	if c.RiskMinSize <= 0 || c.RiskMinSize > c.RiskMaxSize {
		return fmt.Errorf("%w: risk size bounds invalid: min %v max %v", ErrInvalidConfig, c.RiskMinSize, c.RiskMaxSize)
	}
	if c.AvgMovePerMinute <= 0 {
		return fmt.Errorf("%w: avg_move_per_minute must be positive", ErrInvalidConfig)
	}
	return nil
}

// Clone returns a deep copy so callers can hold a snapshot while the
// authoritative record is replaced.
func (c Configuration) Clone() Configuration {
	out := c
	out.RegimeMultipliers = make(map[string]float64, len(c.RegimeMultipliers))
	for k, v := range c.RegimeMultipliers {
		out.RegimeMultipliers[k] = v
	}
	return out
}
