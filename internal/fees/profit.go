// Package fees is the single fee-aware profit model. Every surface
// that shows a long/short/leveraged projection calls ComputeBreakdown;
// the formula exists exactly once.
package fees

import (
	"math"

	"position-sizing-engine/internal/domain"
)

// BreakdownParams describes one candidate trade for projection.
type BreakdownParams struct {
	Size                float64
	EntryPrice          float64
	ExpectedMovePercent float64 // fractional, 0.005 = 0.5%
	Direction           string  // long | short
	Leverage            float64 // 1 for spot
	FeeSchedule         domain.FeeSchedule
}

// ComputeBreakdown projects gross profit, round-trip fees and net
// profit for a candidate trade. Pure and total: non-finite inputs are
// zeroed, leverage below 1 is treated as 1, and the result is rounded
// to cents at the edge.
//
// Fees charge the taker rate twice (entry and exit); funding applies
// only on leveraged positions.
func ComputeBreakdown(p BreakdownParams) domain.ProfitBreakdown {
	size := finiteOrZero(p.Size)
	entry := finiteOrZero(p.EntryPrice)
	move := finiteOrZero(p.ExpectedMovePercent)
	leverage := finiteOrZero(p.Leverage)
	if leverage < 1 {
		leverage = 1
	}

	exitPrice := entry * (1 + move)
	if p.Direction == domain.DirectionShort {
		exitPrice = entry * (1 - move)
	}

	gross := size * move * leverage

	fee := size * leverage * p.FeeSchedule.Taker * 2
	if leverage > 1 {
		fee += size * leverage * p.FeeSchedule.Funding
	}

	return domain.ProfitBreakdown{
		ExitPrice:   exitPrice,
		GrossProfit: domain.Round2(gross),
		Fees:        domain.Round2(fee),
		NetProfit:   domain.Round2(gross - fee),
	}
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
