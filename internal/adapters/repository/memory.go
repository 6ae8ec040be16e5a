package repository

import (
	"context"
	"sync"

	"github.com/okian/matchtag/internal/domain/model"
)

type memoryRecord struct {
	revision int64
	events   []model.Event
}

// MemoryStore is an in-process EventStore.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]memoryRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Load(_ context.Context, matchID string) ([]model.Event, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return model.CloneEvents(rec.events), rec.revision, nil
}

func (s *MemoryStore) Save(_ context.Context, matchID string, revision int64, events []model.Event) error {
	if matchID == "" {
		return ErrInvalidMatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.matches[matchID]; ok && revision <= rec.revision {
		return ErrStaleRevision
	}
	s.matches[matchID] = memoryRecord{revision: revision, events: model.CloneEvents(events)}
	return nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
