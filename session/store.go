package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store keeps wizard state per user. Missing or expired state reads as idle.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore is a process-local Store, used when no Redis is configured
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[int64]memoryEntry
}

// NewMemoryStore creates a store whose entries expire after ttl of inactivity.
// A zero ttl keeps entries until cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]memoryEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return State{}, nil
	}
	if s.ttl > 0 && !s.now().Before(entry.expiresAt) {
		delete(s.entries, userID)
		return State{}, nil
	}
	return entry.state, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID int64, state State) error {
	if state.IsIdle() {
		return s.Clear(ctx, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = memoryEntry{state: state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	return nil
}

// Prune drops expired entries and returns how many were removed
func (s *MemoryStore) Prune() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// StartPruning prunes expired entries every interval until ctx is done or
// the returned cleanup function is called
func (s *MemoryStore) StartPruning(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopChan:
				return
			case <-ticker.C:
				if removed := s.Prune(); removed > 0 {
					log.WithField("removed", removed).Debug("Pruned expired sessions")
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
