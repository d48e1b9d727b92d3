package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
	"consentd/internal/ledger/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// Store is the append-only ledger port. Append assigns the sequence and
// hash links atomically with respect to other appends.
type Store interface {
	Append(ctx context.Context, record *models.Record) (*models.Record, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
}

// ActivityLookup resolves catalog entries.
type ActivityLookup interface {
	Get(ctx context.Context, activityID id.ActivityID) (*catalogmodels.Activity, error)
}

// ConsentLookup resolves the consent in force for a subject.
type ConsentLookup interface {
	Get(ctx context.Context, subjectID string) (*consentmodels.Consent, bool, error)
}

type Option func(*Service)

// Service records processing events.
type Service struct {
	store      Store
	activities ActivityLookup
	consents   ConsentLookup
	ids        id.IDGenerator
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(store Store, activities ActivityLookup, consents ConsentLookup, ids id.IDGenerator, logger *slog.Logger, opts ...Option) *Service {
	if store == nil || activities == nil || consents == nil {
		panic("ledger service requires store, activity and consent collaborators")
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	svc := &Service{
		store:      store,
		activities: activities,
		consents:   consents,
		ids:        ids,
		logger:     logger,
		now:        time.Now,
	}
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

// Record appends a processing event. The activity must be catalogued. The
// subject's current consent ID is attached when one exists; processing on a
// non-consent legal basis is still recorded without it.
func (s *Service) Record(ctx context.Context, req models.RecordRequest) (*models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	activity, err := s.activities.Get(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}

	var consentID id.ConsentID
	consent, found, err := s.consents.Get(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if found {
		consentID = consent.ID
	}

	// timestamptz keeps microseconds; truncating keeps hashes stable across a round trip
	record := &models.Record{
		ID:                id.NewRecordID(s.ids),
		SubjectID:         req.SubjectID,
		ActivityID:        activity.ID,
		DataType:          req.DataType,
		Purpose:           firstNonEmpty(req.Purpose, activity.Purpose),
		LegalBasis:        firstNonEmpty(req.LegalBasis, activity.LegalBasis),
		Categories:        slices.Clone(req.Categories),
		RetentionDays:     req.RetentionDays,
		Timestamp:         s.now().UTC().Truncate(time.Microsecond),
		ConsentID:         consentID,
		AutomatedDecision: req.AutomatedDecision,
		Profiling:         req.Profiling,
	}
	if record.RetentionDays == 0 {
		record.RetentionDays = activity.RetentionDays
	}
	if len(record.Categories) == 0 {
		record.Categories = slices.Clone(activity.DataCategories)
	}

	sealed, err := s.store.Append(ctx, record)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append processing record")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "processing recorded",
			"record_id", sealed.ID,
			"subject_id", sealed.SubjectID,
			"activity_id", sealed.ActivityID,
			"sequence", sealed.Sequence,
		)
	}
	return sealed, nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]*models.Record, error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	out, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processing records")
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count processing records")
	}
	return n, nil
}

// VerifyChain walks the whole ledger and reports the first broken link.
func (s *Service) VerifyChain(ctx context.Context) (*models.ChainReport, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger")
	}
	report := &models.ChainReport{Records: len(records), Valid: true}
	prevHash := models.GenesisHash
	for i, r := range records {
		want := int64(i + 1)
		switch {
		case r.Sequence != want:
			report.Reason = fmt.Sprintf("expected sequence %d, found %d", want, r.Sequence)
		case r.PrevHash != prevHash:
			report.Reason = "previous hash mismatch"
		case r.ComputeHash() != r.Hash:
			report.Reason = "record hash mismatch"
		}
		if report.Reason != "" {
			report.Valid = false
			report.BrokenAt = r.Sequence
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "ledger chain broken",
					"sequence", r.Sequence,
					"reason", report.Reason,
				)
			}
			return report, nil
		}
		prevHash = r.Hash
	}
	return report, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
