package store

import (
	"context"
	"sync"

	"consentd/internal/ledger/models"
)

// InMemoryStore is an append-only, hash-chained ledger held in memory.
// Records are kept in sequence order with a subject index of positions.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   []*models.Record
	bySubject map[string][]int
}

func New() *InMemoryStore {
	return &InMemoryStore{bySubject: make(map[string][]int)}
}

// Append seals the record against the current tail and stores a copy.
// The sealed record is returned.
func (s *InMemoryStore) Append(_ context.Context, record *models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sealed := record.Clone()
	var prev *models.Record
	if n := len(s.records); n > 0 {
		prev = s.records[n-1]
	}
	sealed.Seal(prev)
	s.records = append(s.records, sealed)
	s.bySubject[sealed.SubjectID] = append(s.bySubject[sealed.SubjectID], len(s.records)-1)
	return sealed.Clone(), nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	positions := s.bySubject[subjectID]
	out := make([]*models.Record, 0, len(positions))
	for _, i := range positions {
		out = append(out, s.records[i].Clone())
	}
	return out, nil
}

// List returns every record in sequence order.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
