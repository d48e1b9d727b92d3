package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"consentd/internal/catalog/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// Store persists catalog entries.
// Error Contract:
//   - Add returns sentinel.ErrConflict for a duplicate ID
//   - Get returns sentinel.ErrNotFound for an unknown ID
type Store interface {
	Add(ctx context.Context, a *models.Activity) error
	Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	List(ctx context.Context) ([]*models.Activity, error)
	Count(ctx context.Context) (int, error)
}

type Option func(*Service)

// Service is the processing activity catalog.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if store == nil {
		panic("catalog service requires a store")
	}
	svc := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Add validates and inserts an activity. Duplicate IDs are rejected because
// entries are immutable once published.
func (s *Service) Add(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	if err := activity.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	if err := s.store.Add(ctx, &activity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeInvalidActivity, "activity already exists: "+activity.ID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store activity")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "activity added", "activity_id", activity.ID)
	}
	return activity.Clone(), nil
}

// Get returns the activity or UnknownActivity.
func (s *Service) Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	a, err := s.store.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnknownActivity, "unknown activity: "+activityID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read activity")
	}
	return a, nil
}

// Exists reports whether the activity is catalogued.
func (s *Service) Exists(ctx context.Context, activityID id.ActivityID) (bool, error) {
	_, err := s.Get(ctx, activityID)
	if err == nil {
		return true, nil
	}
	if dErrors.HasCode(err, dErrors.CodeUnknownActivity) {
		return false, nil
	}
	return false, err
}

func (s *Service) List(ctx context.Context) ([]*models.Activity, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count activities")
	}
	return n, nil
}

// SeedDefaults inserts the default activities. Entries already present are
// left alone so seeding is safe to repeat.
func (s *Service) SeedDefaults(ctx context.Context) error {
	return s.addAll(ctx, models.DefaultActivities())
}

func (s *Service) addAll(ctx context.Context, activities []models.Activity) error {
	added := 0
	for _, a := range activities {
		if _, err := s.Add(ctx, a); err != nil {
			exists, existsErr := s.Exists(ctx, a.ID)
			if existsErr == nil && exists && dErrors.HasCode(err, dErrors.CodeInvalidActivity) {
				continue
			}
			return err
		}
		added++
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "catalog seeded", "added", added, "total", len(activities))
	}
	return nil
}
