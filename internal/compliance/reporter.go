package compliance

import (
	"context"
	"log/slog"
	"time"

	assessmentmodels "consentd/internal/assessment/models"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
	dErrors "consentd/pkg/domain-errors"
)

// Read-only views of the registries the reporter summarizes.
type (
	ConsentSource interface {
		List(ctx context.Context) ([]*consentmodels.Consent, error)
	}
	ActivitySource interface {
		List(ctx context.Context) ([]*catalogmodels.Activity, error)
	}
	AssessmentSource interface {
		List(ctx context.Context) ([]*assessmentmodels.Assessment, error)
	}
	BreachSource interface {
		List(ctx context.Context) ([]*breachmodels.Breach, error)
	}
	LedgerSource interface {
		Count(ctx context.Context) (int, error)
	}
)

// Sources groups the registries a Reporter reads.
type Sources struct {
	Consents    ConsentSource
	Activities  ActivitySource
	Assessments AssessmentSource
	Breaches    BreachSource
	Ledger      LedgerSource
}

type Reporter struct {
	src     Sources
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Reporter)

func WithMetrics(m *Metrics) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

func NewReporter(src Sources, logger *slog.Logger, opts ...Option) *Reporter {
	if src.Consents == nil || src.Activities == nil || src.Assessments == nil || src.Breaches == nil || src.Ledger == nil {
		panic("compliance reporter requires every source")
	}
	r := &Reporter{src: src, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate builds a report from the current state. It mutates nothing.
func (r *Reporter) Generate(ctx context.Context) (*Report, error) {
	snap, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}
	score, recommendations, findings := evaluate(snap)

	report := &Report{
		GeneratedAt:     snap.now,
		Summary:         summarize(snap),
		Score:           score,
		Recommendations: recommendations,
		Findings:        findings,
	}

	if r.metrics != nil {
		r.metrics.ObserveReport(score)
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "compliance report generated",
			"score", score,
			"findings", len(findings),
			"recommendations", len(recommendations),
		)
	}
	return report, nil
}

func (r *Reporter) collect(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{now: r.now()}
	var err error
	if snap.consents, err = r.src.Consents.List(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	if snap.activities, err = r.src.Activities.List(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}
	if snap.assessments, err = r.src.Assessments.List(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assessments")
	}
	if snap.breaches, err = r.src.Breaches.List(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list breaches")
	}
	if snap.records, err = r.src.Ledger.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count processing records")
	}
	return snap, nil
}

func summarize(snap *snapshot) Summary {
	s := Summary{
		Consents:          len(snap.consents),
		ActiveGrants:      make(map[consentmodels.Grant]int, len(consentmodels.AllGrants)),
		Activities:        len(snap.activities),
		Assessments:       len(snap.assessments),
		Breaches:          len(snap.breaches),
		ProcessingRecords: snap.records,
	}
	for _, g := range consentmodels.AllGrants {
		s.ActiveGrants[g] = 0
	}
	for _, c := range snap.consents {
		for _, g := range c.ActiveGrants() {
			s.ActiveGrants[g]++
		}
	}
	for _, a := range snap.assessments {
		if a.Status == assessmentmodels.StatusPending {
			s.PendingAssessments++
		}
	}
	cutoff := snap.now.Add(-RecentBreachWindow)
	for _, b := range snap.breaches {
		if !b.DiscoveryDate.Before(cutoff) {
			s.RecentBreaches++
		}
	}
	return s
}
