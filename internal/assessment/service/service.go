package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"consentd/internal/assessment/models"
	"consentd/internal/audit"
	catalogmodels "consentd/internal/catalog/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// Store persists assessments.
// Error Contract:
//   - FindByID and Execute return sentinel.ErrNotFound for unknown IDs
//   - Execute returns fn's error unchanged and leaves the record untouched
type Store interface {
	Create(ctx context.Context, a *models.Assessment) error
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error)
	Execute(ctx context.Context, assessmentID id.AssessmentID, fn func(*models.Assessment) error) (*models.Assessment, error)
	List(ctx context.Context) ([]*models.Assessment, error)
	ListByActivity(ctx context.Context, activityID id.ActivityID) ([]*models.Assessment, error)
}

// ActivityLookup resolves catalog entries.
type ActivityLookup interface {
	Get(ctx context.Context, activityID id.ActivityID) (*catalogmodels.Activity, error)
}

type Option func(*Service)

// Service is the privacy impact assessment store.
type Service struct {
	store      Store
	activities ActivityLookup
	ids        id.IDGenerator
	auditor    *audit.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(store Store, activities ActivityLookup, ids id.IDGenerator, logger *slog.Logger, opts ...Option) *Service {
	if store == nil || activities == nil {
		panic("assessment service requires store and activity collaborators")
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	svc := &Service{
		store:      store,
		activities: activities,
		ids:        ids,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAuditor sets the audit publisher.
func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Create records a pending assessment for a catalogued activity.
func (s *Service) Create(ctx context.Context, activityID id.ActivityID, req models.CreateRequest) (*models.Assessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.activities.Get(ctx, activityID); err != nil {
		return nil, err
	}
	a := &models.Assessment{
		ID:             id.NewAssessmentID(s.ids),
		ActivityID:     activityID,
		AssessmentDate: s.now(),
		RiskLevel:      req.RiskLevel,
		SubjectCount:   req.SubjectCount,
		DataCategories: slices.Clone(req.DataCategories),
		Purposes:       slices.Clone(req.Purposes),
		Risks:          slices.Clone(req.Risks),
		Mitigations:    slices.Clone(req.Mitigations),
		ResidualRisks:  slices.Clone(req.ResidualRisks),
		Status:         models.StatusPending,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save assessment")
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: a.AssessmentDate,
		Action:    audit.ActionAssessmentCreated,
		Resource:  a.ID.String(),
		Reason:    string(a.RiskLevel),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "assessment created",
			"assessment_id", a.ID,
			"activity_id", activityID,
			"risk_level", a.RiskLevel,
		)
	}
	return a.Clone(), nil
}

func (s *Service) Approve(ctx context.Context, assessmentID id.AssessmentID, approver string) (*models.Assessment, error) {
	return s.decide(ctx, assessmentID, models.StatusApproved, approver)
}

func (s *Service) Reject(ctx context.Context, assessmentID id.AssessmentID, approver string) (*models.Assessment, error) {
	return s.decide(ctx, assessmentID, models.StatusRejected, approver)
}

func (s *Service) decide(ctx context.Context, assessmentID id.AssessmentID, to models.Status, approver string) (*models.Assessment, error) {
	if err := models.ValidateApprover(approver); err != nil {
		return nil, err
	}
	now := s.now()
	updated, err := s.store.Execute(ctx, assessmentID, func(a *models.Assessment) error {
		return a.Decide(to, approver, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeAssessmentNotFound, "assessment not found: "+assessmentID.String())
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update assessment")
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.ActionAssessmentDecided,
		Resource:  updated.ID.String(),
		Decision:  string(to),
		Reason:    approver,
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "assessment decided",
			"assessment_id", updated.ID,
			"status", to,
		)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	a, err := s.store.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeAssessmentNotFound, "assessment not found: "+assessmentID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assessment")
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Assessment, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assessments")
	}
	return out, nil
}

func (s *Service) ListByActivity(ctx context.Context, activityID id.ActivityID) ([]*models.Assessment, error) {
	out, err := s.store.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assessments")
	}
	return out, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}
