package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/assessment/models"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

// InMemoryStore holds assessments keyed by ID with an index by activity.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments map[id.AssessmentID]*models.Assessment
	byActivity  map[id.ActivityID][]id.AssessmentID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		assessments: make(map[id.AssessmentID]*models.Assessment),
		byActivity:  make(map[id.ActivityID][]id.AssessmentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.assessments[a.ID] = a.Clone()
	s.byActivity[a.ActivityID] = append(s.byActivity[a.ActivityID], a.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// Execute runs fn against the stored assessment under the write lock and
// persists the result only when fn succeeds.
func (s *InMemoryStore) Execute(_ context.Context, assessmentID id.AssessmentID, fn func(*models.Assessment) error) (*models.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.assessments[assessmentID] = working
	return working.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Assessment, 0, len(s.assessments))
	for _, a := range s.assessments {
		out = append(out, a.Clone())
	}
	sortByDate(out)
	return out, nil
}

func (s *InMemoryStore) ListByActivity(_ context.Context, activityID id.ActivityID) ([]*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byActivity[activityID]
	out := make([]*models.Assessment, 0, len(ids))
	for _, aid := range ids {
		out = append(out, s.assessments[aid].Clone())
	}
	sortByDate(out)
	return out, nil
}

func sortByDate(out []*models.Assessment) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssessmentDate.Equal(out[j].AssessmentDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].AssessmentDate.Before(out[j].AssessmentDate)
	})
}
