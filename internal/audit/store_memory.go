package audit

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore keeps the trail in arrival order with a per-subject index
// into it.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []Event
	bySubject map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySubject: make(map[string][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySubject[event.SubjectID] = append(s.bySubject[event.SubjectID], len(s.events))
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.bySubject[subjectID]
	out := make([]Event, len(idx))
	for i, n := range idx {
		out[i] = s.events[n]
	}
	return out, nil
}

// Len reports how many events the trail holds.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Actions returns the distinct actions recorded so far, sorted.
func (s *InMemoryStore) Actions() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make([]Action, 0, 8)
	for _, ev := range s.events {
		if !slices.Contains(seen, ev.Action) {
			seen = append(seen, ev.Action)
		}
	}
	slices.Sort(seen)
	return seen
}
