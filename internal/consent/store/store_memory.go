package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/consent/models"
	"consentd/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrConflict when Create finds an existing consent
// - Return nil for successful operations

// InMemoryStore keeps consents and their paired rights records in memory,
// indexed by subject ID. Every read and write copies so callers never share
// maps with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[string]*models.Consent
	rights   map[string]*models.DataSubjectRights
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		consents: make(map[string]*models.Consent),
		rights:   make(map[string]*models.DataSubjectRights),
	}
}

// Create inserts a consent together with its rights record.
func (s *InMemoryStore) Create(_ context.Context, consent *models.Consent, rights *models.DataSubjectRights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[consent.SubjectID]; ok {
		return sentinel.ErrConflict
	}
	s.consents[consent.SubjectID] = consent.Clone()
	copyRights := *rights
	s.rights[consent.SubjectID] = &copyRights
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.consents[consent.SubjectID]
	if !ok || existing.ID != consent.ID {
		return sentinel.ErrNotFound
	}
	s.consents[consent.SubjectID] = consent.Clone()
	return nil
}

func (s *InMemoryStore) FindBySubject(_ context.Context, subjectID string) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	consent, ok := s.consents[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return consent.Clone(), nil
}

func (s *InMemoryStore) FindRights(_ context.Context, subjectID string) (*models.DataSubjectRights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rights, ok := s.rights[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRights := *rights
	return &copyRights, nil
}

// DeleteBySubject removes the consent and rights records in one step.
func (s *InMemoryStore) DeleteBySubject(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[subjectID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.consents, subjectID)
	delete(s.rights, subjectID)
	return nil
}

// List returns every consent ordered by subject ID.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Consent, 0, len(s.consents))
	for _, c := range s.consents {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}
