package visibility

import (
	"context"
	"sync"

	"phdpeer/pkg/domain"
	"phdpeer/pkg/platform/sentinel"
)

// InMemoryStore keeps assignment edges in process memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	edges map[Assignment]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{edges: make(map[Assignment]struct{})}
}

func (s *InMemoryStore) Create(_ context.Context, assignment Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[assignment]; exists {
		return sentinel.ErrConflict
	}
	s.edges[assignment] = struct{}{}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, assignment Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[assignment]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.edges, assignment)
	return nil
}

func (s *InMemoryStore) ListSubjects(_ context.Context, supervisorID domain.PersonID) ([]domain.PersonID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subjects []domain.PersonID
	for edge := range s.edges {
		if edge.SupervisorID == supervisorID {
			subjects = append(subjects, edge.SubjectID)
		}
	}
	return subjects, nil
}

func (s *InMemoryStore) Exists(_ context.Context, assignment Assignment) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.edges[assignment]
	return exists, nil
}
