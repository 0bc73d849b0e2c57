package memory

import (
	"context"
	"sync"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]domain.Configuration // keyed by user_id
}

// NewConfigStore creates a new in-memory configuration store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		data: make(map[string]domain.Configuration),
	}
}

// Save stores or replaces the configuration for its user atomically.
// The record is validated before any state changes, so readers never
// see a half-applied configuration.
func (s *ConfigStore) Save(_ context.Context, cfg domain.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[cfg.UserID] = cfg.Clone()
	return nil
}

// GetByUserID retrieves a configuration. Returns ErrNotFound if not exists.
func (s *ConfigStore) GetByUserID(_ context.Context, userID string) (domain.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.data[userID]
	if !exists {
		return domain.Configuration{}, storage.ErrNotFound
	}

	return cfg.Clone(), nil
}

var _ storage.ConfigStore = (*ConfigStore)(nil)
