package clickhouse

import (
	"context"
	"fmt"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// DecisionLogStore implements storage.DecisionLogStore using ClickHouse.
// The sizing_decisions table is the append-only audit trail the
// dashboard charts sizing behavior from.
type DecisionLogStore struct {
	conn *Conn
}

// NewDecisionLogStore creates a new DecisionLogStore.
func NewDecisionLogStore(conn *Conn) *DecisionLogStore {
	return &DecisionLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DecisionLogStore = (*DecisionLogStore)(nil)

// Insert appends a single decision row.
func (s *DecisionLogStore) Insert(ctx context.Context, d *domain.SizingDecision) error {
	return s.InsertBulk(ctx, []*domain.SizingDecision{d})
}

// InsertBulk appends multiple decisions in one batch.
func (s *DecisionLogStore) InsertBulk(ctx context.Context, decisions []*domain.SizingDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	for _, d := range decisions {
		if d == nil || d.DecisionID == "" || d.UserID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sizing_decisions (
			decision_id, user_id, event_type, timestamp_ms,
			final_size, base_size, streak_multiplier, regime_multiplier, combined_multiplier,
			consecutive_wins, consecutive_losses, regime_label, confidence,
			compound_size, profit, reason
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, d := range decisions {
		err = batch.Append(
			d.DecisionID, d.UserID, d.EventType, uint64(d.Timestamp),
			d.FinalSize, d.BaseSize, d.StreakMultiplier, d.RegimeMultiplier, d.CombinedMultiplier,
			int32(d.ConsecutiveWins), int32(d.ConsecutiveLosses), d.RegimeLabel, d.Confidence,
			d.CompoundSize, d.Profit, d.Reason,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByUserID retrieves decisions for a user within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *DecisionLogStore) GetByUserID(ctx context.Context, userID string, start, end int64) ([]*domain.SizingDecision, error) {
	query := `
		SELECT decision_id, user_id, event_type, timestamp_ms,
			final_size, base_size, streak_multiplier, regime_multiplier, combined_multiplier,
			consecutive_wins, consecutive_losses, regime_label, confidence,
			compound_size, profit, reason
		FROM sizing_decisions
		WHERE user_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, decision_id ASC
	`

	rows, err := s.conn.Query(ctx, query, userID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query decisions by user: %w", err)
	}
	defer rows.Close()

	return scanSizingDecisions(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSizingDecisions scans multiple rows into a slice.
func scanSizingDecisions(rows chRows) ([]*domain.SizingDecision, error) {
	var decisions []*domain.SizingDecision

	for rows.Next() {
		var d domain.SizingDecision
		var timestampMs uint64
		var wins, losses int32

		err := rows.Scan(
			&d.DecisionID, &d.UserID, &d.EventType, &timestampMs,
			&d.FinalSize, &d.BaseSize, &d.StreakMultiplier, &d.RegimeMultiplier, &d.CombinedMultiplier,
			&wins, &losses, &d.RegimeLabel, &d.Confidence,
			&d.CompoundSize, &d.Profit, &d.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sizing decision row: %w", err)
		}

		d.Timestamp = int64(timestampMs)
		d.ConsecutiveWins = int(wins)
		d.ConsecutiveLosses = int(losses)
		decisions = append(decisions, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sizing decision rows: %w", err)
	}

	return decisions, nil
}
