package memory

import (
	"context"
	"sync"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// CompoundStateStore is an in-memory implementation of storage.CompoundStateStore.
type CompoundStateStore struct {
	mu   sync.RWMutex
	data map[string]domain.CompoundState // keyed by user_id
}

// NewCompoundStateStore creates a new in-memory compound state store.
func NewCompoundStateStore() *CompoundStateStore {
	return &CompoundStateStore{
		data: make(map[string]domain.CompoundState),
	}
}

// Save stores or replaces the compound state for its user atomically.
func (s *CompoundStateStore) Save(_ context.Context, st domain.CompoundState) error {
	if st.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[st.UserID] = st
	return nil
}

// GetByUserID retrieves a compound state. Returns ErrNotFound if not exists.
func (s *CompoundStateStore) GetByUserID(_ context.Context, userID string) (domain.CompoundState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[userID]
	if !exists {
		return domain.CompoundState{}, storage.ErrNotFound
	}

	return st, nil
}

// Delete removes the state for a user. No error if absent.
func (s *CompoundStateStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, userID)
	return nil
}

var _ storage.CompoundStateStore = (*CompoundStateStore)(nil)
