// Package engine is the single entry point to the consent and
// data-governance services. New wires every registry from a Config; callers
// (the HTTP layer, jobs, tests) only use the methods on Engine.
package engine

import (
	"context"
	"log/slog"
	"time"

	assessmentmodels "consentd/internal/assessment/models"
	assessmentservice "consentd/internal/assessment/service"
	assessmentstore "consentd/internal/assessment/store"
	"consentd/internal/audit"
	breachmodels "consentd/internal/breach/models"
	breachservice "consentd/internal/breach/service"
	breachstore "consentd/internal/breach/store"
	catalogmodels "consentd/internal/catalog/models"
	catalogservice "consentd/internal/catalog/service"
	catalogstore "consentd/internal/catalog/store"
	"consentd/internal/compliance"
	consentmetrics "consentd/internal/consent/metrics"
	consentmodels "consentd/internal/consent/models"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	ledgermodels "consentd/internal/ledger/models"
	ledgerservice "consentd/internal/ledger/service"
	ledgerstore "consentd/internal/ledger/store"
	"consentd/internal/platform/tracer"
	rightsmetrics "consentd/internal/rights/metrics"
	rightsmodels "consentd/internal/rights/models"
	"consentd/internal/rights/ports"
	rightsservice "consentd/internal/rights/service"
	id "consentd/pkg/domain"
	platformsync "consentd/pkg/platform/sync"
)

// Stores holds the storage ports. A nil store falls back to its in-memory
// implementation.
type Stores struct {
	Consents    consentservice.Store
	Activities  catalogservice.Store
	Ledger      ledgerservice.Store
	Assessments assessmentservice.Store
	Breaches    breachservice.Store
	Audit       audit.Store
}

// Metrics bundles the per-context collectors. Build it once per process.
type Metrics struct {
	Consent    *consentmetrics.Metrics
	Rights     *rightsmetrics.Metrics
	Compliance *compliance.Metrics
}

func NewMetrics() *Metrics {
	return &Metrics{
		Consent:    consentmetrics.New(),
		Rights:     rightsmetrics.New(),
		Compliance: compliance.NewMetrics(),
	}
}

// Config carries the engine's collaborators. DataGateway and Notifier are
// required; everything else has a default.
type Config struct {
	DataGateway ports.DataGateway
	Notifier    breachservice.NotificationGateway
	Stores      Stores
	IDs         id.IDGenerator
	Locker      platformsync.Locker
	Tracer      tracer.Tracer
	Metrics     *Metrics
	Logger      *slog.Logger
	// AuditBuffer > 0 persists audit events asynchronously.
	AuditBuffer int
	Clock       func() time.Time
}

type Engine struct {
	consents    *consentservice.Service
	catalog     *catalogservice.Service
	rights      *rightsservice.Service
	ledger      *ledgerservice.Service
	assessments *assessmentservice.Service
	breaches    *breachservice.Service
	reporter    *compliance.Reporter
	auditor     *audit.Publisher
}

// New wires the engine. It panics when a required collaborator is missing.
func New(cfg Config) *Engine {
	if cfg.DataGateway == nil {
		panic("engine requires a data gateway")
	}
	if cfg.Notifier == nil {
		panic("engine requires a notification gateway")
	}
	if cfg.IDs == nil {
		cfg.IDs = id.NewUUIDGenerator()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	st := cfg.Stores.withDefaults()

	auditor := audit.NewPublisher(st.Audit,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(cfg.Logger),
		audit.WithPublisherClock(cfg.Clock),
	)

	consentOpts := []consentservice.Option{
		consentservice.WithAuditor(auditor),
		consentservice.WithClock(cfg.Clock),
	}
	rightsOpts := []rightsservice.Option{
		rightsservice.WithAuditor(auditor),
		rightsservice.WithTracer(cfg.Tracer),
		rightsservice.WithClock(cfg.Clock),
	}
	var reporterOpts []compliance.Option
	if cfg.Locker != nil {
		consentOpts = append(consentOpts, consentservice.WithLocker(cfg.Locker))
	}
	if cfg.Metrics != nil {
		consentOpts = append(consentOpts, consentservice.WithMetrics(cfg.Metrics.Consent))
		rightsOpts = append(rightsOpts, rightsservice.WithMetrics(cfg.Metrics.Rights))
		reporterOpts = append(reporterOpts, compliance.WithMetrics(cfg.Metrics.Compliance))
	}
	reporterOpts = append(reporterOpts, compliance.WithClock(cfg.Clock))

	consents := consentservice.NewService(st.Consents, cfg.IDs, cfg.Logger, consentOpts...)
	catalog := catalogservice.NewService(st.Activities, cfg.Logger, catalogservice.WithClock(cfg.Clock))
	ledger := ledgerservice.NewService(st.Ledger, catalog, consents, cfg.IDs, cfg.Logger,
		ledgerservice.WithClock(cfg.Clock))
	assessments := assessmentservice.NewService(st.Assessments, catalog, cfg.IDs, cfg.Logger,
		assessmentservice.WithAuditor(auditor),
		assessmentservice.WithClock(cfg.Clock),
	)
	breaches := breachservice.NewService(st.Breaches, cfg.Notifier, cfg.IDs, cfg.Logger,
		breachservice.WithAuditor(auditor),
		breachservice.WithClock(cfg.Clock),
	)

	return &Engine{
		consents:    consents,
		catalog:     catalog,
		rights:      rightsservice.NewService(consents, cfg.DataGateway, cfg.IDs, cfg.Logger, rightsOpts...),
		ledger:      ledger,
		assessments: assessments,
		breaches:    breaches,
		reporter: compliance.NewReporter(compliance.Sources{
			Consents:    consents,
			Activities:  catalog,
			Assessments: assessments,
			Breaches:    breaches,
			Ledger:      ledger,
		}, cfg.Logger, reporterOpts...),
		auditor: auditor,
	}
}

func (s Stores) withDefaults() Stores {
	if s.Consents == nil {
		s.Consents = consentstore.New()
	}
	if s.Activities == nil {
		s.Activities = catalogstore.New()
	}
	if s.Ledger == nil {
		s.Ledger = ledgerstore.New()
	}
	if s.Assessments == nil {
		s.Assessments = assessmentstore.New()
	}
	if s.Breaches == nil {
		s.Breaches = breachstore.New()
	}
	if s.Audit == nil {
		s.Audit = audit.NewInMemoryStore()
	}
	return s
}

// Close drains pending audit events.
func (e *Engine) Close() {
	e.auditor.Close()
}

// Consent registry.

func (e *Engine) RegisterConsent(ctx context.Context, subjectID string, req consentmodels.RegisterRequest) (*consentmodels.Consent, error) {
	return e.consents.Register(ctx, subjectID, req)
}

func (e *Engine) GetConsent(ctx context.Context, subjectID string) (*consentmodels.Consent, bool, error) {
	return e.consents.Get(ctx, subjectID)
}

func (e *Engine) GetRights(ctx context.Context, subjectID string) (*consentmodels.DataSubjectRights, bool, error) {
	return e.consents.Rights(ctx, subjectID)
}

func (e *Engine) HasGrant(ctx context.Context, subjectID string, grant consentmodels.Grant) bool {
	return e.consents.HasGrant(ctx, subjectID, grant)
}

func (e *Engine) WithdrawGrants(ctx context.Context, subjectID string, grants []consentmodels.Grant) (*consentmodels.Consent, error) {
	return e.consents.Withdraw(ctx, subjectID, grants)
}

// Activity catalog.

func (e *Engine) SeedCatalog(ctx context.Context) error {
	return e.catalog.SeedDefaults(ctx)
}

func (e *Engine) LoadCatalogFile(ctx context.Context, path string) error {
	return e.catalog.LoadFile(ctx, path)
}

func (e *Engine) AddActivity(ctx context.Context, activity catalogmodels.Activity) (*catalogmodels.Activity, error) {
	return e.catalog.Add(ctx, activity)
}

func (e *Engine) GetActivity(ctx context.Context, activityID id.ActivityID) (*catalogmodels.Activity, error) {
	return e.catalog.Get(ctx, activityID)
}

func (e *Engine) ListActivities(ctx context.Context) ([]*catalogmodels.Activity, error) {
	return e.catalog.List(ctx)
}

// Rights requests.

func (e *Engine) ProcessAccessRequest(ctx context.Context, subjectID string) (*rightsmodels.AccessResponse, error) {
	return e.rights.Access(ctx, subjectID)
}

func (e *Engine) ProcessPortabilityRequest(ctx context.Context, subjectID string) (*rightsmodels.PortabilityEnvelope, error) {
	return e.rights.Portability(ctx, subjectID)
}

func (e *Engine) ProcessErasureRequest(ctx context.Context, subjectID string) (*rightsmodels.ErasureResponse, error) {
	return e.rights.Erase(ctx, subjectID)
}

// Processing ledger.

func (e *Engine) RecordProcessing(ctx context.Context, req ledgermodels.RecordRequest) (*ledgermodels.Record, error) {
	return e.ledger.Record(ctx, req)
}

func (e *Engine) ListProcessingRecords(ctx context.Context, subjectID string) ([]*ledgermodels.Record, error) {
	return e.ledger.ListBySubject(ctx, subjectID)
}

func (e *Engine) VerifyLedger(ctx context.Context) (*ledgermodels.ChainReport, error) {
	return e.ledger.VerifyChain(ctx)
}

// Impact assessments.

func (e *Engine) CreateAssessment(ctx context.Context, activityID id.ActivityID, req assessmentmodels.CreateRequest) (*assessmentmodels.Assessment, error) {
	return e.assessments.Create(ctx, activityID, req)
}

func (e *Engine) ApproveAssessment(ctx context.Context, assessmentID id.AssessmentID, approver string) (*assessmentmodels.Assessment, error) {
	return e.assessments.Approve(ctx, assessmentID, approver)
}

func (e *Engine) RejectAssessment(ctx context.Context, assessmentID id.AssessmentID, approver string) (*assessmentmodels.Assessment, error) {
	return e.assessments.Reject(ctx, assessmentID, approver)
}

func (e *Engine) GetAssessment(ctx context.Context, assessmentID id.AssessmentID) (*assessmentmodels.Assessment, error) {
	return e.assessments.Get(ctx, assessmentID)
}

func (e *Engine) ListAssessments(ctx context.Context) ([]*assessmentmodels.Assessment, error) {
	return e.assessments.List(ctx)
}

// Breach register.

func (e *Engine) RecordBreach(ctx context.Context, req breachmodels.RecordRequest) (*breachmodels.Breach, error) {
	return e.breaches.Record(ctx, req)
}

func (e *Engine) AdvanceBreachStatus(ctx context.Context, breachID id.BreachID, to breachmodels.Status, reportedTo string) (*breachmodels.Breach, error) {
	return e.breaches.Advance(ctx, breachID, to, reportedTo)
}

func (e *Engine) GetBreach(ctx context.Context, breachID id.BreachID) (*breachmodels.Breach, error) {
	return e.breaches.Get(ctx, breachID)
}

func (e *Engine) ListBreaches(ctx context.Context) ([]*breachmodels.Breach, error) {
	return e.breaches.List(ctx)
}

// Reporting and audit.

func (e *Engine) GenerateComplianceReport(ctx context.Context) (*compliance.Report, error) {
	return e.reporter.Generate(ctx)
}

// AuditTrail returns the audit events recorded for a subject.
func (e *Engine) AuditTrail(ctx context.Context, subjectID string) ([]audit.Event, error) {
	return e.auditor.List(ctx, subjectID)
}
