package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"consentd/internal/audit"
	"consentd/internal/breach/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// NotificationGateway delivers regulator notifications. The register only
// flags the requirement and hands the breach over; delivery guarantees are
// the gateway's.
type NotificationGateway interface {
	ScheduleRegulatoryNotification(ctx context.Context, breach *models.Breach) error
}

// Store persists breach records.
// Error Contract:
//   - FindByID and Execute return sentinel.ErrNotFound for unknown IDs
//   - Execute returns fn's error unchanged and leaves the record untouched
//   - Delete returns sentinel.ErrNotFound for unknown IDs
type Store interface {
	Create(ctx context.Context, b *models.Breach) error
	FindByID(ctx context.Context, breachID id.BreachID) (*models.Breach, error)
	Execute(ctx context.Context, breachID id.BreachID, fn func(*models.Breach) error) (*models.Breach, error)
	List(ctx context.Context) ([]*models.Breach, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, breachID id.BreachID) error
}

type Option func(*Service)

// Service is the breach register.
type Service struct {
	store    Store
	notifier NotificationGateway
	ids      id.IDGenerator
	auditor  *audit.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, notifier NotificationGateway, ids id.IDGenerator, logger *slog.Logger, opts ...Option) *Service {
	if store == nil || notifier == nil {
		panic("breach service requires store and notification gateway")
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	svc := &Service{
		store:    store,
		notifier: notifier,
		ids:      ids,
		logger:   logger,
		now:      time.Now,
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

// Record registers a breach in the investigating state. High and critical
// breaches are flagged for regulator notification and handed to the gateway
// once, after the record is saved. If the gateway fails the record is
// withdrawn, so a breach is never kept without its notification.
func (s *Service) Record(ctx context.Context, req models.RecordRequest) (*models.Breach, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b := &models.Breach{
		ID:                     id.NewBreachID(s.ids),
		BreachDate:             req.BreachDate,
		DiscoveryDate:          req.DiscoveryDate,
		AffectedSubjects:       req.AffectedSubjects,
		DataCategories:         slices.Clone(req.DataCategories),
		Type:                   req.Type,
		Severity:               req.Severity,
		Description:            req.Description,
		Cause:                  req.Cause,
		RemediationMeasures:    slices.Clone(req.RemediationMeasures),
		Status:                 models.StatusInvestigating,
		RegulatoryNotification: req.Severity.RequiresRegulatorNotification(),
		SubjectNotification:    req.Severity.RequiresSubjectNotification(),
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save breach")
	}

	if b.RegulatoryNotification {
		if err := s.notifier.ScheduleRegulatoryNotification(ctx, b.Clone()); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "regulatory notification failed",
					"breach_id", b.ID,
					"severity", b.Severity,
					"error", err,
				)
			}
			if delErr := s.store.Delete(ctx, b.ID); delErr != nil {
				return nil, dErrors.Wrap(errors.Join(err, delErr), dErrors.CodeInternal, "failed to withdraw breach "+b.ID.String()+" after notification failure")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeGatewayFailure, "schedule regulatory notification for breach "+b.ID.String())
		}
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: s.now(),
		Action:    audit.ActionBreachRecorded,
		Resource:  b.ID.String(),
		Reason:    string(b.Severity),
	})
	if s.logger != nil {
		s.logger.WarnContext(ctx, "breach recorded",
			"breach_id", b.ID,
			"severity", b.Severity,
			"type", b.Type,
			"affected_subjects", b.AffectedSubjects,
			"regulatory_notification", b.RegulatoryNotification,
		)
	}
	return b.Clone(), nil
}

// Advance moves a breach forward. reportedTo is required, and only used,
// when moving to reported.
func (s *Service) Advance(ctx context.Context, breachID id.BreachID, to models.Status, reportedTo string) (*models.Breach, error) {
	now := s.now()
	var from models.Status
	updated, err := s.store.Execute(ctx, breachID, func(b *models.Breach) error {
		from = b.Status
		return b.Advance(to, reportedTo, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBreachNotFound, "breach not found: "+breachID.String())
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) || dErrors.IsInvalidArgument(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update breach")
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.ActionBreachAdvanced,
		Resource:  updated.ID.String(),
		Decision:  string(to),
		Reason:    string(from),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "breach status advanced",
			"breach_id", updated.ID,
			"from", from,
			"to", to,
		)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, breachID id.BreachID) (*models.Breach, error) {
	b, err := s.store.FindByID(ctx, breachID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBreachNotFound, "breach not found: "+breachID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read breach")
	}
	return b, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Breach, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list breaches")
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count breaches")
	}
	return n, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}
