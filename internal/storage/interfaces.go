package storage

import (
	"context"

	"position-sizing-engine/internal/domain"
)

// ConfigStore provides access to sizing_configurations storage.
// Saves replace the whole record; partial updates are never merged.
type ConfigStore interface {
	// Save stores or replaces the configuration for its user atomically.
	// Returns ErrInvalidInput on a record that fails validation.
	Save(ctx context.Context, cfg domain.Configuration) error

	// GetByUserID retrieves a configuration. Returns ErrNotFound if not exists.
	GetByUserID(ctx context.Context, userID string) (domain.Configuration, error)
}

// CompoundStateStore provides access to compound_states storage.
type CompoundStateStore interface {
	// Save stores or replaces the compound state for its user atomically.
	Save(ctx context.Context, s domain.CompoundState) error

	// GetByUserID retrieves a compound state. Returns ErrNotFound if not exists.
	GetByUserID(ctx context.Context, userID string) (domain.CompoundState, error)

	// Delete removes the state for a user. No error if absent.
	Delete(ctx context.Context, userID string) error
}

// DecisionLogStore provides access to the append-only sizing_decisions
// audit log.
type DecisionLogStore interface {
	// Insert appends a single decision row.
	Insert(ctx context.Context, d *domain.SizingDecision) error

	// InsertBulk appends multiple decisions in one batch.
	InsertBulk(ctx context.Context, decisions []*domain.SizingDecision) error

	// GetByUserID retrieves decisions for a user within [start, end]
	// (inclusive, ms), ordered by timestamp ASC.
	GetByUserID(ctx context.Context, userID string, start, end int64) ([]*domain.SizingDecision, error)
}
