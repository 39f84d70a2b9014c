package memory

import (
	"context"
	"sort"
	"sync"

	"phdpeer/internal/ledger"
	"phdpeer/internal/taxonomy"
)

// InMemoryStore keeps ledger events in process memory. Used by unit tests and
// development wiring; the postgres store is the durable implementation.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []ledger.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append stores a copy of the event. Metadata is copied too so no caller can
// reach the stored map afterwards.
func (s *InMemoryStore) Append(_ context.Context, event ledger.Event) error {
	event.Metadata = copyMetadata(event.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns matching events ordered by timestamp descending.
func (s *InMemoryStore) List(_ context.Context, filter ledger.Filter) ([]ledger.Event, error) {
	s.mu.RLock()
	matched := make([]ledger.Event, 0)
	for _, event := range s.events {
		if matches(event, filter) {
			event.Metadata = copyMetadata(event.Metadata)
			matched = append(matched, event)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset >= len(matched) {
		return []ledger.Event{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// CountByType aggregates matching events per event type.
func (s *InMemoryStore) CountByType(_ context.Context, filter ledger.Filter) (map[taxonomy.EventType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[taxonomy.EventType]int64)
	for _, event := range s.events {
		if matches(event, filter) {
			counts[event.Type]++
		}
	}
	return counts, nil
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func matches(event ledger.Event, filter ledger.Filter) bool {
	if len(filter.SubjectIDs) > 0 {
		found := false
		for _, subjectID := range filter.SubjectIDs {
			if event.SubjectID == subjectID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.SourceModule != "" && event.SourceModule != filter.SourceModule {
		return false
	}
	if !filter.From.IsZero() && event.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !event.Timestamp.Before(filter.To) {
		return false
	}
	return true
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
