package tracker

import (
	"context"
	"sync"
	"time"

	"phdpeer/internal/lifecycle"
	"phdpeer/pkg/platform/sentinel"
)

type entityKey struct {
	kind lifecycle.Kind
	id   string
}

// InMemoryStore keeps lifecycle rows in process memory. The mutex spans the
// whole compare-and-swap so the guard is atomic, matching what the postgres
// conditional update provides.
type InMemoryStore struct {
	mu       sync.RWMutex
	entities map[entityKey]Entity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entities: make(map[entityKey]Entity)}
}

func (s *InMemoryStore) Create(_ context.Context, entity Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{kind: entity.Kind, id: entity.ID}
	if _, exists := s.entities[key]; exists {
		return sentinel.ErrConflict
	}
	s.entities[key] = entity
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, kind lifecycle.Kind, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityKey{kind: kind, id: id}]
	if !ok {
		return Entity{}, sentinel.ErrNotFound
	}
	return entity, nil
}

func (s *InMemoryStore) CompareAndSwapState(_ context.Context, kind lifecycle.Kind, id string, from, to lifecycle.State, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{kind: kind, id: id}
	entity, ok := s.entities[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if entity.State != from {
		return sentinel.ErrConflict
	}
	entity.State = to
	entity.StateEnteredAt = at
	s.entities[key] = entity
	return nil
}
