package domain

// StreakState tracks consecutive outcome runs and the multiplier they
// drive. Session-local; reconstructable by replaying the outcome stream.
type StreakState struct {
	ConsecutiveWins   int     // mutually exclusive with ConsecutiveLosses
	ConsecutiveLosses int
	StreakMultiplier  float64 // initialized to 1.0
	LastWinCount      int     // last win count at which a step fired
	LastLossCount     int     // last loss count at which a step fired
}

// NewStreakState returns the neutral starting state.
func NewStreakState() StreakState {
	return StreakState{StreakMultiplier: 1.0}
}

// RecentPerformance labels the current streak for display text.
const (
	PerformanceWinning = "winning"
	PerformanceLosing  = "losing"
	PerformanceNeutral = "neutral"
)

// CompoundState is the persisted reinvestment ratchet.
// Invariant while compounding: OriginalSize <= CurrentSize <= OriginalSize * MaxMultiplier.
type CompoundState struct {
	UserID            string
	OriginalSize      float64
	CurrentSize       float64
	CurrentMultiplier float64 // CurrentSize / OriginalSize
	TotalCompounded   float64 // sum of reinvested amounts
	TotalProfitSeen   float64 // cumulative profit, gates the threshold
	UpdatedAt         int64   // last mutation time (ms)
}

// NewCompoundState returns a fresh ratchet anchored at the given base size.
func NewCompoundState(userID string, baseSize float64) CompoundState {
	return CompoundState{
		UserID:            userID,
		OriginalSize:      baseSize,
		CurrentSize:       baseSize,
		CurrentMultiplier: 1.0,
	}
}
