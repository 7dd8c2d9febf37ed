package billing

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenEvents remembers recently applied event ids so Stripe redeliveries
// are acknowledged without touching storage again. It is per process; a
// redelivery to another instance simply reapplies the idempotent upgrade.
type SeenEvents struct {
	cache *lru.Cache[string, struct{}]
}

func NewSeenEvents(size int) (*SeenEvents, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &SeenEvents{cache: cache}, nil
}

func (s *SeenEvents) Seen(eventID string) bool {
	if eventID == "" {
		return false
	}
	return s.cache.Contains(eventID)
}

func (s *SeenEvents) Mark(eventID string) {
	if eventID == "" {
		return
	}
	s.cache.Add(eventID, struct{}{})
}
