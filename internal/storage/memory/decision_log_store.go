package memory

import (
	"context"
	"sort"
	"sync"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// DecisionLogStore is an in-memory implementation of storage.DecisionLogStore.
type DecisionLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SizingDecision // keyed by decision_id
}

// NewDecisionLogStore creates a new in-memory decision log store.
func NewDecisionLogStore() *DecisionLogStore {
	return &DecisionLogStore{
		data: make(map[string]*domain.SizingDecision),
	}
}

// Insert appends a single decision. Returns ErrDuplicateKey if decision_id exists.
func (s *DecisionLogStore) Insert(_ context.Context, d *domain.SizingDecision) error {
	if d == nil || d.DecisionID == "" || d.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DecisionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.DecisionID] = &copy
	return nil
}

// InsertBulk appends multiple decisions atomically. Fails entire batch on any duplicate.
func (s *DecisionLogStore) InsertBulk(_ context.Context, decisions []*domain.SizingDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(decisions))

	for _, d := range decisions {
		if d == nil || d.DecisionID == "" || d.UserID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[d.DecisionID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[d.DecisionID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[d.DecisionID] = struct{}{}
	}

	for _, d := range decisions {
		copy := *d
		s.data[d.DecisionID] = &copy
	}

	return nil
}

// GetByUserID retrieves decisions for a user within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *DecisionLogStore) GetByUserID(_ context.Context, userID string, start, end int64) ([]*domain.SizingDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SizingDecision
	for _, d := range s.data {
		if d.UserID == userID && d.Timestamp >= start && d.Timestamp <= end {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].DecisionID < result[j].DecisionID
	})

	return result, nil
}

var _ storage.DecisionLogStore = (*DecisionLogStore)(nil)
