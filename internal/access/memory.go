package access

import (
	"context"
	"sync"
	"time"

	"resume-tailor/internal/common/logger"
)

// MemoryStore keeps grants in process memory. Grants do not survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]AccessGrant
	now    Clock
	logger logger.Logger
}

func NewMemoryStore(log logger.Logger, clock Clock) *MemoryStore {
	if clock == nil {
		clock = systemClock
	}
	return &MemoryStore{
		grants: make(map[string]AccessGrant),
		now:    clock,
		logger: log.WithFields(map[string]interface{}{"store": "memory"}),
	}
}

func (s *MemoryStore) Grant(_ context.Context, identity string, d time.Duration) (*AccessGrant, error) {
	now := s.now()
	g, err := newGrant(identity, d, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.grants[g.Token] = *g
	s.mu.Unlock()

	issued(s.logger, "memory", g)
	return g, nil
}

func (s *MemoryStore) IsAuthorized(_ context.Context, token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	g, ok := s.grants[token]
	s.mu.RUnlock()
	return ok && g.ValidAt(s.now())
}

// sweepLocked drops expired grants so the map does not grow without bound.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for token, g := range s.grants {
		if !g.ValidAt(now) {
			delete(s.grants, token)
		}
	}
}

// Len returns the number of grants currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}
