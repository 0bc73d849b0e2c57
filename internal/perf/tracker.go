// Package perf folds the trade-outcome stream into the rolling inputs
// the risk-adjusted sizer needs: win rate, realized volatility of
// returns, and current drawdown from the equity peak.
package perf

import (
	"math"

	"position-sizing-engine/internal/sizing"
)

// DefaultWindow is how many recent trades feed win rate and volatility.
const DefaultWindow = 20

// Tracker is a deterministic fold over closed trades. Not safe for
// concurrent use; the engine owns one instance behind its lock.
type Tracker struct {
	window  int
	returns []float64 // profit / reference size, most recent last
	wins    []bool

	equity float64 // cumulative realized profit
	peak   float64 // highest equity seen
}

// NewTracker returns a tracker over the given window, or DefaultWindow
// when n < 1.
func NewTracker(window int) *Tracker {
	if window < 1 {
		window = DefaultWindow
	}
	return &Tracker{window: window}
}

// Observe records one closed trade. refSize normalizes the profit into
// a return; the caller passes the base size in effect when the trade
// was opened.
func (t *Tracker) Observe(profit float64, isWin bool, refSize float64) {
	if math.IsNaN(profit) || math.IsInf(profit, 0) {
		profit = 0
	}
	if refSize <= 0 || math.IsNaN(refSize) || math.IsInf(refSize, 0) {
		refSize = 1
	}

	t.returns = append(t.returns, profit/refSize)
	t.wins = append(t.wins, isWin)
	if len(t.returns) > t.window {
		t.returns = t.returns[1:]
		t.wins = t.wins[1:]
	}

	t.equity += profit
	if t.equity > t.peak {
		t.peak = t.equity
	}
}

// WinRate over the window. 0.5 until the first trade lands, so the
// risk multiplier starts neutral.
func (t *Tracker) WinRate() float64 {
	if len(t.wins) == 0 {
		return 0.5
	}
	wins := 0
	for _, w := range t.wins {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(t.wins))
}

// Volatility is the sample standard deviation of windowed returns.
// Returns the epsilon floor until two trades have landed.
func (t *Tracker) Volatility() float64 {
	n := len(t.returns)
	if n < 2 {
		return sizing.VolatilityFloor
	}
	mean := 0.0
	for _, r := range t.returns {
		mean += r
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, r := range t.returns {
		diff := r - mean
		sumSq += diff * diff
	}
	return sizing.SanitizeVolatility(math.Sqrt(sumSq / float64(n-1)))
}

// Drawdown is the current decline from the equity peak as a fraction
// of the peak. Zero at or above the peak, and zero while the peak is
// still non-positive.
func (t *Tracker) Drawdown() float64 {
	if t.peak <= 0 {
		return 0
	}
	dd := (t.peak - t.equity) / t.peak
	if dd < 0 {
		return 0
	}
	return dd
}

// Inputs bundles the current readings for the risk-adjusted sizer.
func (t *Tracker) Inputs() sizing.RiskInputs {
	return sizing.RiskInputs{
		RecentVolatility: t.Volatility(),
		WinRate:          t.WinRate(),
		CurrentDrawdown:  t.Drawdown(),
	}
}

// Reset clears all history.
func (t *Tracker) Reset() {
	t.returns = nil
	t.wins = nil
	t.equity = 0
	t.peak = 0
}
