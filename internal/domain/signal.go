package domain

// RegimeSignal is the externally supplied market-trend observation.
// Confidence is derived from Deviation, never stored.
type RegimeSignal struct {
	Label     string  // BULL | BEAR | CHOP
	Deviation float64 // signed price distance from the trend reference
}

// TradeOutcome is a closed-trade event, the only input that mutates
// streak and compound state.
type TradeOutcome struct {
	UserID    string
	Profit    float64 // realized profit, negative on a loss
	IsWin     bool    // breakeven counts as a loss
	Timestamp int64   // close time (ms)
}
