package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"consentd/internal/audit"
	"consentd/internal/consent/metrics"
	"consentd/internal/consent/models"
	id "consentd/pkg/domain"
	pkgerrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
	platformsync "consentd/pkg/platform/sync"
)

// Store defines the persistence interface for consent records.
// Error Contract:
//   - Create returns sentinel.ErrConflict when the subject already has a consent
//   - Update, FindBySubject, FindRights and DeleteBySubject return
//     sentinel.ErrNotFound when the subject has no record
type Store interface {
	Create(ctx context.Context, consent *models.Consent, rights *models.DataSubjectRights) error
	Update(ctx context.Context, consent *models.Consent) error
	FindBySubject(ctx context.Context, subjectID string) (*models.Consent, error)
	FindRights(ctx context.Context, subjectID string) (*models.DataSubjectRights, error)
	DeleteBySubject(ctx context.Context, subjectID string) error
	List(ctx context.Context) ([]*models.Consent, error)
}

type Option func(*Service)

// Service is the consent registry. It owns the per-subject locks: every
// mutation of a subject's consent runs under that subject's exclusive lock,
// and callers that need a stable view across several reads use ReadLocked.
type Service struct {
	store   Store
	ids     id.IDGenerator
	locks   platformsync.Locker
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, ids id.IDGenerator, logger *slog.Logger, opts ...Option) *Service {
	if store == nil {
		panic("consent service requires a store")
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	svc := &Service{
		store:  store,
		ids:    ids,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.locks == nil {
		svc.locks = platformsync.NewKeyedRWMutex()
	}
	return svc
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditor sets the audit publisher.
func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithLocker replaces the in-process subject locks, e.g. with a Redis-backed
// locker when several replicas share one store.
func WithLocker(l platformsync.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
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

// Register records the subject's grants. The first call creates the consent
// together with its rights entity; later calls merge into the existing
// consent, overwriting only the grants and fields they supply.
func (s *Service) Register(ctx context.Context, subjectID string, req models.RegisterRequest) (*models.Consent, error) {
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lockSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	existing, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}

	if err == nil {
		existing.Apply(req, now)
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to update consent")
		}
		s.emitAudit(ctx, audit.Event{
			Timestamp: now,
			SubjectID: subjectID,
			Action:    audit.ActionConsentUpdated,
			Resource:  existing.ID.String(),
			Decision:  audit.DecisionGranted,
		})
		if s.metrics != nil {
			s.metrics.IncrementUpdated()
		}
		s.logInfo(ctx, "consent updated", subjectID, existing.ID)
		return existing.Clone(), nil
	}

	consent, err := models.NewConsent(id.NewConsentID(s.ids), subjectID, now)
	if err != nil {
		return nil, err
	}
	consent.Apply(req, now)
	rights := models.DefaultRights(subjectID, now)
	if err := s.store.Create(ctx, consent, rights); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// another replica won the race outside our lock domain
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "consent created concurrently")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to save consent")
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		SubjectID: subjectID,
		Action:    audit.ActionConsentRegistered,
		Resource:  consent.ID.String(),
		Decision:  audit.DecisionGranted,
	})
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.logInfo(ctx, "consent registered", subjectID, consent.ID)
	return consent.Clone(), nil
}

// Get returns the subject's consent. A missing consent is reported through
// the bool, not as an error.
func (s *Service) Get(ctx context.Context, subjectID string) (*models.Consent, bool, error) {
	if subjectID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}
	consent, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}
	return consent, true, nil
}

// Rights returns the rights entity created alongside the subject's consent.
func (s *Service) Rights(ctx context.Context, subjectID string) (*models.DataSubjectRights, bool, error) {
	if subjectID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}
	rights, err := s.store.FindRights(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read rights")
	}
	return rights, true, nil
}

// HasGrant reports whether the grant is explicitly given. Unknown subjects,
// unknown grant names and store failures all answer false.
func (s *Service) HasGrant(ctx context.Context, subjectID string, grant models.Grant) bool {
	if subjectID == "" || !grant.IsValid() {
		return false
	}
	consent, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "grant check failed to read consent",
				"subject_id", subjectID,
				"grant", grant,
				"error", err,
			)
		}
		s.observeGrantCheck(grant, false)
		return false
	}
	granted := consent.Has(grant)
	s.observeGrantCheck(grant, granted)
	return granted
}

// Withdraw sets the named grants to false. Names outside the schema are
// ignored; a subject without consent yields ConsentNotFound.
func (s *Service) Withdraw(ctx context.Context, subjectID string, grants []models.Grant) (*models.Consent, error) {
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}

	unlock, err := s.lockSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	consent, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConsentNotFound, "no consent registered for subject")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}

	now := s.now()
	changed := consent.Withdraw(grants, now)
	if err := s.store.Update(ctx, consent); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to update consent")
	}
	for _, g := range changed {
		s.emitAudit(ctx, audit.Event{
			Timestamp: now,
			SubjectID: subjectID,
			Action:    audit.ActionGrantsWithdrawn,
			Resource:  string(g),
			Decision:  audit.DecisionCompleted,
		})
		if s.metrics != nil {
			s.metrics.IncrementWithdrawn(string(g))
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "grants withdrawn",
			"subject_id", subjectID,
			"requested", len(grants),
			"changed", len(changed),
		)
	}
	return consent.Clone(), nil
}

// List returns every consent ordered by subject ID.
func (s *Service) List(ctx context.Context) ([]*models.Consent, error) {
	consents, err := s.store.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to list consents")
	}
	return consents, nil
}

// ReadLocked runs fn while holding the subject's shared lock, so an erasure
// cannot interleave with the reads fn performs. consent and rights are nil
// when the subject has no consent.
func (s *Service) ReadLocked(ctx context.Context, subjectID string, fn func(ctx context.Context, consent *models.Consent, rights *models.DataSubjectRights) error) error {
	if subjectID == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}
	unlock, err := s.rlockSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	defer unlock()

	consent, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}
	var rights *models.DataSubjectRights
	if consent != nil {
		rights, err = s.store.FindRights(ctx, subjectID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read rights")
		}
	}
	return fn(ctx, consent, rights)
}

// Erase removes the subject's consent and rights after purge succeeds.
// The whole sequence holds the subject's exclusive lock:
//  1. the consent must exist (ConsentNotFound otherwise)
//  2. the required grant must be given (ConsentRequired otherwise)
//  3. purge deletes the subject's data elsewhere; on error nothing changes
//  4. the consent and rights are removed
//
// The returned consent is the record as it was before removal.
func (s *Service) Erase(ctx context.Context, subjectID string, required models.Grant, purge func(ctx context.Context) error) (*models.Consent, error) {
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "subject ID required")
	}

	unlock, err := s.lockSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	consent, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConsentNotFound, "no consent registered for subject")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}
	if !consent.Has(required) {
		return nil, pkgerrors.New(pkgerrors.CodeConsentRequired, string(required)+" not granted")
	}

	if purge != nil {
		if err := purge(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.store.DeleteBySubject(ctx, subjectID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to delete consent")
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp: s.now(),
		SubjectID: subjectID,
		Action:    audit.ActionConsentErased,
		Resource:  consent.ID.String(),
		Decision:  audit.DecisionCompleted,
	})
	if s.metrics != nil {
		s.metrics.IncrementErased()
	}
	s.logInfo(ctx, "consent erased", subjectID, consent.ID)
	return consent, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}

func (s *Service) observeGrantCheck(grant models.Grant, granted bool) {
	if s.metrics != nil {
		s.metrics.ObserveGrantCheck(string(grant), granted)
	}
}

func (s *Service) logInfo(ctx context.Context, msg, subjectID string, consentID id.ConsentID) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg,
		"subject_id", subjectID,
		"consent_id", consentID,
	)
}
