package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/breach/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// InMemoryStore is the breach register backing store.
type InMemoryStore struct {
	mu       sync.RWMutex
	breaches map[id.BreachID]*models.Breach
}

func New() *InMemoryStore {
	return &InMemoryStore{breaches: make(map[id.BreachID]*models.Breach)}
}

func (s *InMemoryStore) Create(_ context.Context, b *models.Breach) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.breaches[b.ID]; ok {
		return sentinel.ErrConflict
	}
	s.breaches[b.ID] = b.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, breachID id.BreachID) (*models.Breach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.breaches[breachID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return b.Clone(), nil
}

// Execute applies fn under the write lock and keeps the change only if fn
// succeeds.
func (s *InMemoryStore) Execute(_ context.Context, breachID id.BreachID, fn func(*models.Breach) error) (*models.Breach, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.breaches[breachID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.breaches[breachID] = working
	return working.Clone(), nil
}

// List returns breaches by discovery date, newest first.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Breach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Breach, 0, len(s.breaches))
	for _, b := range s.breaches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DiscoveryDate.Equal(out[j].DiscoveryDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].DiscoveryDate.After(out[j].DiscoveryDate)
	})
	return out, nil
}

// Delete removes a breach. Only used to withdraw a record whose regulatory
// notification could not be scheduled.
func (s *InMemoryStore) Delete(_ context.Context, breachID id.BreachID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.breaches[breachID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.breaches, breachID)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.breaches), nil
}
