package compliance

import (
	"context"
	"sync"
)

// MemoryOptOutStore keeps opt-outs in process memory. Opt-outs are
// permanent for the process lifetime; durable deployments use the Redis
// store.
type MemoryOptOutStore struct {
	mu      sync.RWMutex
	optouts map[string]struct{}
}

func NewMemoryOptOutStore() *MemoryOptOutStore {
	return &MemoryOptOutStore{optouts: make(map[string]struct{})}
}

func (s *MemoryOptOutStore) IsOptedOut(_ context.Context, channel, contactID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, found := s.optouts[channel+":"+contactID]

	return found, nil
}

func (s *MemoryOptOutStore) RecordOptOut(_ context.Context, channel, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.optouts[channel+":"+contactID] = struct{}{}

	return nil
}
