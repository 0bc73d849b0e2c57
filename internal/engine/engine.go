// Package engine owns the live sizing state for one user and exposes
// the operations the API surface calls. All mutation funnels through a
// single mutex so concurrent readers always observe a consistent
// multiplier set.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"position-sizing-engine/internal/compound"
	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/fees"
	"position-sizing-engine/internal/idhash"
	"position-sizing-engine/internal/observability"
	"position-sizing-engine/internal/perf"
	"position-sizing-engine/internal/regime"
	"position-sizing-engine/internal/sizing"
	"position-sizing-engine/internal/storage"
	"position-sizing-engine/internal/streak"
)

// Engine coordinates the streak scaler, regime multiplier, compounder
// and performance tracker over one user's configuration.
type Engine struct {
	mu sync.Mutex

	userID string
	cfg    domain.Configuration
	streak domain.StreakState
	comp   domain.CompoundState
	signal domain.RegimeSignal
	perf   *perf.Tracker
	seq    uint64 // decision sequence, disambiguates same-millisecond events

	configStore storage.ConfigStore
	compStore   storage.CompoundStateStore
	decisionLog storage.DecisionLogStore // optional

	logger *log.Logger
	now    func() time.Time
}

// Options for creating an Engine.
type Options struct {
	UserID string

	// Required stores
	ConfigStore        storage.ConfigStore
	CompoundStateStore storage.CompoundStateStore

	// Optional audit log; decisions are dropped when nil
	DecisionLog storage.DecisionLogStore

	Logger *log.Logger
	Now    func() time.Time // defaults to time.Now
}

// New creates an Engine, loading persisted configuration and compound
// state or seeding defaults on first run.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("engine: user id is required")
	}
	if opts.ConfigStore == nil || opts.CompoundStateStore == nil {
		return nil, fmt.Errorf("engine: config and compound state stores are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		userID:      opts.UserID,
		streak:      domain.NewStreakState(),
		signal:      domain.RegimeSignal{Label: domain.RegimeChop},
		perf:        perf.NewTracker(perf.DefaultWindow),
		configStore: opts.ConfigStore,
		compStore:   opts.CompoundStateStore,
		decisionLog: opts.DecisionLog,
		logger:      logger,
		now:         now,
	}

	cfg, err := e.configStore.GetByUserID(ctx, opts.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("engine: load configuration: %w", err)
		}
		cfg = domain.DefaultConfiguration(opts.UserID)
		if err := e.configStore.Save(ctx, cfg); err != nil {
			return nil, fmt.Errorf("engine: seed configuration: %w", err)
		}
		logger.Printf("Seeded default configuration for user %s", opts.UserID)
	}
	e.cfg = cfg

	comp, err := e.compStore.GetByUserID(ctx, opts.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("engine: load compound state: %w", err)
		}
		comp = domain.NewCompoundState(opts.UserID, cfg.BasePositionSize)
		if err := e.compStore.Save(ctx, comp); err != nil {
			return nil, fmt.Errorf("engine: seed compound state: %w", err)
		}
	}
	e.comp = comp

	return e, nil
}

// baseSize is the baseline the combined sizer scales from: the
// compounded size when reinvestment is enabled, otherwise the
// configured base. Caller holds the mutex.
func (e *Engine) baseSize() float64 {
	if e.cfg.Compound.Enabled {
		return e.comp.CurrentSize
	}
	return e.cfg.BasePositionSize
}

// GetRecommendedSize computes the streak-and-regime recommendation for
// the current state and appends an audit row.
func (e *Engine) GetRecommendedSize(ctx context.Context) domain.SizeRecommendation {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg)
	observability.RecordRecommendation(rec.FinalSize, rec.CombinedMultiplier, rec.IsAtMinimum, rec.IsAtMaximum)
	observability.DefaultMetrics.StreakMultiplier.Set(rec.StreakMultiplier)

	e.logDecision(ctx, domain.EventRecommendation, rec, 0)
	return rec
}

// GetRiskAdjustedSize computes the volatility-driven recommendation
// from the rolling performance window.
func (e *Engine) GetRiskAdjustedSize() domain.RiskRecommendation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sizing.RiskAdjusted(e.perf.Inputs(), e.cfg)
}

// OnTradeClosed applies one trade outcome to every stateful component,
// exactly once, then persists the compound state. In-memory state is
// authoritative; a persistence failure is returned for visibility but
// the mutation stands.
func (e *Engine) OnTradeClosed(ctx context.Context, outcome domain.TradeOutcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.now().UnixMilli()
	e.streak = streak.ApplyOutcome(e.streak, outcome.IsWin, e.cfg)
	e.comp = compound.ApplyProfit(e.comp, outcome.Profit, e.cfg.Compound, nowMs)
	e.perf.Observe(outcome.Profit, outcome.IsWin, e.cfg.BasePositionSize)

	observability.RecordOutcome(outcome.IsWin)
	observability.DefaultMetrics.StreakMultiplier.Set(e.streak.StreakMultiplier)
	observability.DefaultMetrics.CompoundSize.Set(e.comp.CurrentSize)

	rec := sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg)
	e.logDecision(ctx, domain.EventTradeOutcome, rec, outcome.Profit)

	if err := e.compStore.Save(ctx, e.comp); err != nil {
		e.logger.Printf("Failed to persist compound state for user %s: %v", e.userID, err)
		return fmt.Errorf("engine: persist compound state: %w", err)
	}
	return nil
}

// OnRegimeSignal records the latest market regime observation. Unknown
// labels are kept as-is; the multiplier path treats them as neutral.
func (e *Engine) OnRegimeSignal(signal domain.RegimeSignal) {
	if math.IsNaN(signal.Deviation) || math.IsInf(signal.Deviation, 0) {
		signal.Deviation = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.signal = signal
	observability.RecordRegimeSignal(signal.Label, regime.Confidence(signal.Deviation))
}

// Tick advances the idle decay of the streak multiplier. Call once per
// evaluation interval.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streak = streak.Decay(e.streak)
	observability.DefaultMetrics.EvaluationTicks.Inc()
	observability.DefaultMetrics.StreakMultiplier.Set(e.streak.StreakMultiplier)
}

// ComputeProfitBreakdown projects fee-aware profit for a candidate
// trade using the configured fee schedule.
func (e *Engine) ComputeProfitBreakdown(size, entryPrice, movePercent float64, direction string, leverage float64) domain.ProfitBreakdown {
	e.mu.Lock()
	schedule := e.cfg.FeeSchedule
	e.mu.Unlock()

	return fees.ComputeBreakdown(fees.BreakdownParams{
		Size:                size,
		EntryPrice:          entryPrice,
		ExpectedMovePercent: movePercent,
		Direction:           direction,
		Leverage:            leverage,
		FeeSchedule:         schedule,
	})
}

// Config returns a deep copy of the active configuration.
func (e *Engine) Config() domain.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// ApplyConfig validates and persists a new configuration, then swaps
// it in atomically. The compound ratchet is rebased onto the new base
// size so the earned multiplier carries over.
func (e *Engine) ApplyConfig(ctx context.Context, cfg domain.Configuration) error {
	cfg.UserID = e.userID
	if err := cfg.Validate(); err != nil {
		observability.DefaultMetrics.ConfigUpdatesRejected.Inc()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.configStore.Save(ctx, cfg); err != nil {
		return fmt.Errorf("engine: save configuration: %w", err)
	}
	e.cfg = cfg
	e.comp = compound.Rebase(e.comp, cfg.BasePositionSize, cfg.Compound, e.now().UnixMilli())
	if err := e.compStore.Save(ctx, e.comp); err != nil {
		e.logger.Printf("Failed to persist rebased compound state for user %s: %v", e.userID, err)
	}

	observability.DefaultMetrics.ConfigUpdates.Inc()
	rec := sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg)
	e.logDecision(ctx, domain.EventConfigUpdate, rec, 0)
	e.logger.Printf("Applied configuration update for user %s (base=%.2f)", e.userID, cfg.BasePositionSize)
	return nil
}

// ResetCompound collapses the ratchet back to the original base size.
// The explicit reset is the only path that shrinks the compounded size.
func (e *Engine) ResetCompound(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.comp = compound.Reset(e.comp, e.now().UnixMilli())
	observability.DefaultMetrics.CompoundResets.Inc()
	observability.DefaultMetrics.CompoundSize.Set(e.comp.CurrentSize)

	rec := sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg)
	e.logDecision(ctx, domain.EventReset, rec, 0)

	if err := e.compStore.Save(ctx, e.comp); err != nil {
		return fmt.Errorf("engine: persist compound reset: %w", err)
	}
	return nil
}

// ResetStreak clears the win and loss counters. The multiplier is left
// in place and drifts back to neutral through idle decay.
func (e *Engine) ResetStreak(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.streak = streak.Reset(e.streak)
	rec := sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg)
	e.logDecision(ctx, domain.EventReset, rec, 0)
}

// Snapshot is a consistent read of the full engine state.
type Snapshot struct {
	UserID         string
	Configuration  domain.Configuration
	Streak         domain.StreakState
	Compound       domain.CompoundState
	Signal         domain.RegimeSignal
	Confidence     float64
	Recommendation domain.SizeRecommendation
	Risk           domain.RiskRecommendation
}

// Snapshot returns every observable piece of state under one lock
// acquisition.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		UserID:         e.userID,
		Configuration:  e.cfg.Clone(),
		Streak:         e.streak,
		Compound:       e.comp,
		Signal:         e.signal,
		Confidence:     regime.Confidence(e.signal.Deviation),
		Recommendation: sizing.Combine(e.baseSize(), e.streak, e.signal, e.cfg),
		Risk:           sizing.RiskAdjusted(e.perf.Inputs(), e.cfg),
	}
}

// logDecision appends an audit row. Best effort: a log failure never
// blocks sizing. Caller holds the mutex.
func (e *Engine) logDecision(ctx context.Context, eventType string, rec domain.SizeRecommendation, profit float64) {
	if e.decisionLog == nil {
		return
	}

	ts := e.now().UnixMilli()
	e.seq++
	d := &domain.SizingDecision{
		DecisionID:         idhash.ComputeDecisionID(e.userID, eventType, ts, e.seq),
		UserID:             e.userID,
		EventType:          eventType,
		Timestamp:          ts,
		FinalSize:          rec.FinalSize,
		BaseSize:           rec.BaseSize,
		StreakMultiplier:   rec.StreakMultiplier,
		RegimeMultiplier:   rec.RegimeMultiplier,
		CombinedMultiplier: rec.CombinedMultiplier,
		ConsecutiveWins:    e.streak.ConsecutiveWins,
		ConsecutiveLosses:  e.streak.ConsecutiveLosses,
		RegimeLabel:        e.signal.Label,
		Confidence:         regime.Confidence(e.signal.Deviation),
		CompoundSize:       e.comp.CurrentSize,
		Profit:             profit,
		Reason:             rec.Reason,
	}
	if err := e.decisionLog.Insert(ctx, d); err != nil {
		e.logger.Printf("Failed to append sizing decision %s: %v", d.DecisionID, err)
	}
}

// Replay folds a recorded outcome stream over fresh state and returns
// the resulting streak and compound states. Pure: the live engine is
// untouched, and the same stream always reproduces the same state.
func Replay(cfg domain.Configuration, outcomes []domain.TradeOutcome) (domain.StreakState, domain.CompoundState) {
	s := domain.NewStreakState()
	c := domain.NewCompoundState(cfg.UserID, cfg.BasePositionSize)
	for _, o := range outcomes {
		s = streak.ApplyOutcome(s, o.IsWin, cfg)
		c = compound.ApplyProfit(c, o.Profit, cfg.Compound, o.Timestamp)
	}
	return s, c
}
