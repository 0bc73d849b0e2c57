package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL.
// One row per user; Save is an upsert so the replace is atomic.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// Save stores or replaces the configuration for its user atomically.
func (s *ConfigStore) Save(ctx context.Context, cfg domain.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sizing_configurations (
			user_id, base_position_size, min_multiplier, max_multiplier,
			wins_to_increase, losses_to_decrease, increase_step, decrease_step,
			regime_bull, regime_bear, regime_chop, regime_confidence_floor,
			compound_enabled, compound_percentage, compound_threshold_profit, compound_max_multiplier,
			fee_maker, fee_taker, fee_funding,
			risk_min_size, risk_max_size, avg_move_per_minute, target_profit,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			base_position_size = EXCLUDED.base_position_size,
			min_multiplier = EXCLUDED.min_multiplier,
			max_multiplier = EXCLUDED.max_multiplier,
			wins_to_increase = EXCLUDED.wins_to_increase,
			losses_to_decrease = EXCLUDED.losses_to_decrease,
			increase_step = EXCLUDED.increase_step,
			decrease_step = EXCLUDED.decrease_step,
			regime_bull = EXCLUDED.regime_bull,
			regime_bear = EXCLUDED.regime_bear,
			regime_chop = EXCLUDED.regime_chop,
			regime_confidence_floor = EXCLUDED.regime_confidence_floor,
			compound_enabled = EXCLUDED.compound_enabled,
			compound_percentage = EXCLUDED.compound_percentage,
			compound_threshold_profit = EXCLUDED.compound_threshold_profit,
			compound_max_multiplier = EXCLUDED.compound_max_multiplier,
			fee_maker = EXCLUDED.fee_maker,
			fee_taker = EXCLUDED.fee_taker,
			fee_funding = EXCLUDED.fee_funding,
			risk_min_size = EXCLUDED.risk_min_size,
			risk_max_size = EXCLUDED.risk_max_size,
			avg_move_per_minute = EXCLUDED.avg_move_per_minute,
			target_profit = EXCLUDED.target_profit,
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.UserID,
		cfg.BasePositionSize,
		cfg.MinMultiplier,
		cfg.MaxMultiplier,
		cfg.WinsToIncrease,
		cfg.LossesToDecrease,
		cfg.IncreaseStep,
		cfg.DecreaseStep,
		cfg.RegimeMultipliers[domain.RegimeBull],
		cfg.RegimeMultipliers[domain.RegimeBear],
		cfg.RegimeMultipliers[domain.RegimeChop],
		cfg.RegimeConfidenceFloor,
		cfg.Compound.Enabled,
		cfg.Compound.Percentage,
		cfg.Compound.ThresholdProfit,
		cfg.Compound.MaxMultiplier,
		cfg.FeeSchedule.Maker,
		cfg.FeeSchedule.Taker,
		cfg.FeeSchedule.Funding,
		cfg.RiskMinSize,
		cfg.RiskMaxSize,
		cfg.AvgMovePerMinute,
		cfg.TargetProfit,
	)
	if err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

// GetByUserID retrieves a configuration. Returns ErrNotFound if not exists.
func (s *ConfigStore) GetByUserID(ctx context.Context, userID string) (domain.Configuration, error) {
	query := `
		SELECT user_id, base_position_size, min_multiplier, max_multiplier,
			wins_to_increase, losses_to_decrease, increase_step, decrease_step,
			regime_bull, regime_bear, regime_chop, regime_confidence_floor,
			compound_enabled, compound_percentage, compound_threshold_profit, compound_max_multiplier,
			fee_maker, fee_taker, fee_funding,
			risk_min_size, risk_max_size, avg_move_per_minute, target_profit
		FROM sizing_configurations
		WHERE user_id = $1
	`

	row := s.pool.QueryRow(ctx, query, userID)
	cfg, err := scanConfiguration(row)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Configuration{}, storage.ErrNotFound
		}
		return domain.Configuration{}, fmt.Errorf("get configuration by user: %w", err)
	}
	return cfg, nil
}

// scanConfiguration scans a single row into a Configuration.
func scanConfiguration(row pgx.Row) (domain.Configuration, error) {
	var cfg domain.Configuration
	var bull, bear, chop float64

	err := row.Scan(
		&cfg.UserID,
		&cfg.BasePositionSize,
		&cfg.MinMultiplier,
		&cfg.MaxMultiplier,
		&cfg.WinsToIncrease,
		&cfg.LossesToDecrease,
		&cfg.IncreaseStep,
		&cfg.DecreaseStep,
		&bull,
		&bear,
		&chop,
		&cfg.RegimeConfidenceFloor,
		&cfg.Compound.Enabled,
		&cfg.Compound.Percentage,
		&cfg.Compound.ThresholdProfit,
		&cfg.Compound.MaxMultiplier,
		&cfg.FeeSchedule.Maker,
		&cfg.FeeSchedule.Taker,
		&cfg.FeeSchedule.Funding,
		&cfg.RiskMinSize,
		&cfg.RiskMaxSize,
		&cfg.AvgMovePerMinute,
		&cfg.TargetProfit,
	)
	if err != nil {
		return domain.Configuration{}, err
	}

	cfg.RegimeMultipliers = map[string]float64{
		domain.RegimeBull: bull,
		domain.RegimeBear: bear,
		domain.RegimeChop: chop,
	}
	return cfg, nil
}
