package postgres

import (
	"context"
	"fmt"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// CompoundStateStore implements storage.CompoundStateStore using PostgreSQL.
type CompoundStateStore struct {
	pool *Pool
}

// NewCompoundStateStore creates a new CompoundStateStore.
func NewCompoundStateStore(pool *Pool) *CompoundStateStore {
	return &CompoundStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CompoundStateStore = (*CompoundStateStore)(nil)

// Save stores or replaces the compound state for its user atomically.
func (s *CompoundStateStore) Save(ctx context.Context, st domain.CompoundState) error {
	if st.UserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO compound_states (
			user_id, original_size, current_size, current_multiplier,
			total_compounded, total_profit_seen, updated_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			original_size = EXCLUDED.original_size,
			current_size = EXCLUDED.current_size,
			current_multiplier = EXCLUDED.current_multiplier,
			total_compounded = EXCLUDED.total_compounded,
			total_profit_seen = EXCLUDED.total_profit_seen,
			updated_at_ms = EXCLUDED.updated_at_ms
	`

	_, err := s.pool.Exec(ctx, query,
		st.UserID,
		st.OriginalSize,
		st.CurrentSize,
		st.CurrentMultiplier,
		st.TotalCompounded,
		st.TotalProfitSeen,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save compound state: %w", err)
	}
	return nil
}

// GetByUserID retrieves a compound state. Returns ErrNotFound if not exists.
func (s *CompoundStateStore) GetByUserID(ctx context.Context, userID string) (domain.CompoundState, error) {
	query := `
		SELECT user_id, original_size, current_size, current_multiplier,
			total_compounded, total_profit_seen, updated_at_ms
		FROM compound_states
		WHERE user_id = $1
	`

	var st domain.CompoundState
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&st.UserID,
		&st.OriginalSize,
		&st.CurrentSize,
		&st.CurrentMultiplier,
		&st.TotalCompounded,
		&st.TotalProfitSeen,
		&st.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return domain.CompoundState{}, storage.ErrNotFound
		}
		return domain.CompoundState{}, fmt.Errorf("get compound state by user: %w", err)
	}
	return st, nil
}

// Delete removes the state for a user. No error if absent.
func (s *CompoundStateStore) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM compound_states WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete compound state: %w", err)
	}
	return nil
}
