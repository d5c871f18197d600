package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps processed markers in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, ok := s.expires[key]; ok && now.Before(expiresAt) {
		return false, nil
	}

	s.expires[key] = now.Add(ttl)
	s.evictExpiredLocked(now)
	return true, nil
}

func (s *MemoryStore) evictExpiredLocked(now time.Time) {
	for key, expiresAt := range s.expires {
		if !now.Before(expiresAt) {
			delete(s.expires, key)
		}
	}
}
