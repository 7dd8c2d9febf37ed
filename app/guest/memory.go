package guest

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process. Counters are lost on restart and
// are not shared between instances.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (s *MemoryStore) Read(_ context.Context, guestID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[storageKey(guestID)], nil
}

func (s *MemoryStore) Increment(_ context.Context, guestID string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(guestID)
	if s.counts[key] >= limit {
		return s.counts[key], ErrLimitReached
	}
	s.counts[key]++
	return s.counts[key], nil
}
