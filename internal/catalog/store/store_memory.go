package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/catalog/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// InMemoryStore holds catalog entries keyed by activity ID.
type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[id.ActivityID]*models.Activity
}

func New() *InMemoryStore {
	return &InMemoryStore{activities: make(map[id.ActivityID]*models.Activity)}
}

// Add returns sentinel.ErrConflict when the ID is taken.
func (s *InMemoryStore) Add(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.activities[a.ID] = a.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, activityID id.ActivityID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities), nil
}
