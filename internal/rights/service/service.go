package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"consentd/internal/audit"
	consentmodels "consentd/internal/consent/models"
	"consentd/internal/platform/tracer"
	"consentd/internal/rights/metrics"
	"consentd/internal/rights/models"
	"consentd/internal/rights/ports"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// ConsentRegistry is the part of the consent registry the processor needs:
// per-subject critical sections for reads and for erasure.
type ConsentRegistry interface {
	ReadLocked(ctx context.Context, subjectID string, fn func(ctx context.Context, consent *consentmodels.Consent, rights *consentmodels.DataSubjectRights) error) error
	Erase(ctx context.Context, subjectID string, required consentmodels.Grant, purge func(ctx context.Context) error) (*consentmodels.Consent, error)
}

// Request types used in metrics and audit.
const (
	requestAccess      = "access"
	requestPortability = "portability"
	requestErasure     = "erasure"
)

type Option func(*Service)

// Service executes access, portability and erasure requests. Each request
// is single-pass: nothing about it is stored except the audit trail.
type Service struct {
	consents ConsentRegistry
	gateway  ports.DataGateway
	ids      id.IDGenerator
	tracer   tracer.Tracer
	auditor  *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(consents ConsentRegistry, gateway ports.DataGateway, ids id.IDGenerator, logger *slog.Logger, opts ...Option) *Service {
	if consents == nil || gateway == nil {
		panic("rights service requires consent registry and data gateway")
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	svc := &Service{
		consents: consents,
		gateway:  gateway,
		ids:      ids,
		tracer:   tracer.NewNoop(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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

// Access gathers everything held about the subject. It needs the
// dataProcessing grant and holds the subject's shared lock while the gateway
// runs, so a concurrent erasure cannot be observed half done.
func (s *Service) Access(ctx context.Context, subjectID string) (resp *models.AccessResponse, err error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	requestID := id.NewRequestID(s.ids)
	ctx, span := s.startSpan(ctx, tracer.SpanRightsAccess, subjectID, requestID)
	defer func() {
		span.End(err)
		s.finish(ctx, requestAccess, audit.ActionAccessRequest, subjectID, requestID, err)
	}()

	err = s.consents.ReadLocked(ctx, subjectID, func(ctx context.Context, consent *consentmodels.Consent, rights *consentmodels.DataSubjectRights) error {
		if err := requireGrant(consent, consentmodels.GrantDataProcessing); err != nil {
			return err
		}
		span.AddEvent(tracer.EventConsentChecked)
		bundle, err := s.gather(ctx, subjectID)
		if err != nil {
			return err
		}
		resp = &models.AccessResponse{
			RequestID:   requestID,
			SubjectID:   subjectID,
			GeneratedAt: s.now(),
			Data:        bundle,
			Consent:     consent.Clone(),
			Rights:      rights,
			ContactInfo: consent.ContactInfo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Portability exports the subject's data in a versioned envelope. It needs
// the dataPortability grant.
func (s *Service) Portability(ctx context.Context, subjectID string) (env *models.PortabilityEnvelope, err error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	requestID := id.NewRequestID(s.ids)
	ctx, span := s.startSpan(ctx, tracer.SpanRightsPortability, subjectID, requestID)
	defer func() {
		span.End(err)
		s.finish(ctx, requestPortability, audit.ActionPortabilityRequest, subjectID, requestID, err)
	}()

	err = s.consents.ReadLocked(ctx, subjectID, func(ctx context.Context, consent *consentmodels.Consent, _ *consentmodels.DataSubjectRights) error {
		if err := requireGrant(consent, consentmodels.GrantDataPortability); err != nil {
			return err
		}
		span.AddEvent(tracer.EventConsentChecked)
		bundle, err := s.gather(ctx, subjectID)
		if err != nil {
			return err
		}
		data := bundle.Sections
		if data == nil {
			data = map[string]any{}
		}
		env = &models.PortabilityEnvelope{
			RequestID:  requestID,
			Format:     models.PortabilityFormat,
			Version:    models.PortabilityVersion,
			Schema:     models.PortabilitySchemaDescriptor(),
			ExportedAt: s.now(),
			SubjectID:  subjectID,
			Consent:    models.NewPortableConsent(consent),
			Data:       data,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Erase deletes the subject's data in every subsystem and then removes the
// consent and rights records. Any subsystem failure leaves the consent in
// place and reports GatewayFailure. A subject that was already erased
// yields ConsentNotFound.
func (s *Service) Erase(ctx context.Context, subjectID string) (resp *models.ErasureResponse, err error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	requestID := id.NewRequestID(s.ids)
	ctx, span := s.startSpan(ctx, tracer.SpanRightsErasure, subjectID, requestID)
	defer func() {
		span.End(err)
		s.finish(ctx, requestErasure, audit.ActionErasureRequest, subjectID, requestID, err)
	}()

	var report *ports.DeleteReport
	erased, err := s.consents.Erase(ctx, subjectID, consentmodels.GrantRightToErasure, func(ctx context.Context) error {
		start := time.Now()
		r, err := s.gateway.Delete(ctx, subjectID)
		s.observeGateway("delete", time.Since(start))
		if err != nil {
			return gatewayError(err, subjectID, "delete")
		}
		if r == nil {
			return dErrors.New(dErrors.CodeGatewayFailure, "data gateway returned no delete report for subject "+subjectID)
		}
		if !r.OK() {
			failed := r.Failed()
			span.SetAttributes(tracer.Attribute{Key: tracer.AttrFailedSubsystems, Value: failed})
			return dErrors.New(dErrors.CodeGatewayFailure,
				fmt.Sprintf("delete for subject %s failed in: %s", subjectID, strings.Join(failed, ", ")))
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.ErasureResponse{
		RequestID:  requestID,
		SubjectID:  subjectID,
		ConsentID:  erased.ID,
		ErasedAt:   s.now(),
		Subsystems: report.Results,
	}, nil
}

func (s *Service) gather(ctx context.Context, subjectID string) (*ports.DataBundle, error) {
	start := time.Now()
	bundle, err := s.gateway.Gather(ctx, subjectID)
	s.observeGateway("gather", time.Since(start))
	if err != nil {
		return nil, gatewayError(err, subjectID, "gather")
	}
	if bundle == nil {
		bundle = &ports.DataBundle{SubjectID: subjectID, CollectedAt: s.now(), Sections: map[string]any{}}
	}
	return bundle, nil
}

// requireGrant answers ConsentRequired when the subject has no consent or
// has not given the grant.
func requireGrant(consent *consentmodels.Consent, grant consentmodels.Grant) error {
	if !consent.Has(grant) {
		return dErrors.New(dErrors.CodeConsentRequired, string(grant)+" not granted")
	}
	return nil
}

// gatewayError wraps a collaborator failure. The original error stays in the
// chain so callers can still match context.DeadlineExceeded and friends.
func gatewayError(err error, subjectID, operation string) error {
	return dErrors.Wrap(err, dErrors.CodeGatewayFailure,
		fmt.Sprintf("data gateway %s failed for subject %s: %v", operation, subjectID, err))
}

func (s *Service) startSpan(ctx context.Context, name, subjectID string, requestID id.RequestID) (context.Context, tracer.Span) {
	return s.tracer.Start(ctx, name,
		tracer.String(tracer.AttrSubject, tracer.HashSubjectID(subjectID)),
		tracer.String(tracer.AttrRequestID, requestID.String()),
	)
}

// finish records the request outcome in audit, metrics and logs.
func (s *Service) finish(ctx context.Context, requestType string, action audit.Action, subjectID string, requestID id.RequestID, err error) {
	decision := audit.DecisionCompleted
	reason := ""
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeConsentRequired), dErrors.HasCode(err, dErrors.CodeConsentNotFound):
		decision = audit.DecisionDenied
		reason = string(dErrors.CodeOf(err))
	default:
		decision = audit.DecisionFailed
		reason = string(dErrors.CodeOf(err))
	}

	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: s.now(),
			SubjectID: subjectID,
			Action:    action,
			RequestID: requestID.String(),
			Decision:  decision,
			Reason:    reason,
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveRequest(requestType, decision)
	}
	if s.logger == nil {
		return
	}
	level := slog.LevelInfo
	if decision == audit.DecisionFailed {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "rights request processed",
		"request_type", requestType,
		"request_id", requestID,
		"subject_id", subjectID,
		"decision", decision,
		"reason", reason,
	)
}

func (s *Service) observeGateway(operation string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGateway(operation, d)
	}
}
