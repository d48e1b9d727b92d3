package models

import (
	"slices"
	"strings"
	"time"

	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// Breach is a personal-data breach incident.
//
// # Invariants
//
//   - DiscoveryDate is never before BreachDate.
//   - Status only moves forward (see CanTransitionTo).
//   - ReportedTo and ReportedAt are set exactly when Status is reported.
type Breach struct {
	ID                     id.BreachID
	BreachDate             time.Time
	DiscoveryDate          time.Time
	NotificationDate       *time.Time
	AffectedSubjects       int
	DataCategories         []string
	Type                   Type
	Severity               Severity
	Description            string
	Cause                  string
	RemediationMeasures    []string
	Status                 Status
	RegulatoryNotification bool
	SubjectNotification    bool
	ReportedTo             string
	ReportedAt             *time.Time
}

// Advance moves the breach forward. Reporting needs the recipient of the
// confirmed notification.
func (b *Breach) Advance(to Status, reportedTo string, now time.Time) error {
	if !to.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid breach status: "+string(to))
	}
	if !b.Status.CanTransitionTo(to) {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot move breach from "+string(b.Status)+" to "+string(to))
	}
	if to == StatusReported {
		if strings.TrimSpace(reportedTo) == "" {
			return dErrors.New(dErrors.CodeInvalidTransition, "reporting requires a confirmed notification recipient")
		}
		b.ReportedTo = reportedTo
		b.ReportedAt = &now
		if b.NotificationDate == nil {
			notified := now
			b.NotificationDate = &notified
		}
	}
	b.Status = to
	return nil
}

func (b *Breach) Clone() *Breach {
	if b == nil {
		return nil
	}
	cp := *b
	cp.DataCategories = slices.Clone(b.DataCategories)
	cp.RemediationMeasures = slices.Clone(b.RemediationMeasures)
	if b.NotificationDate != nil {
		t := *b.NotificationDate
		cp.NotificationDate = &t
	}
	if b.ReportedAt != nil {
		t := *b.ReportedAt
		cp.ReportedAt = &t
	}
	return &cp
}

// RecordRequest is the incident data supplied when a breach is recorded.
type RecordRequest struct {
	BreachDate          time.Time
	DiscoveryDate       time.Time
	AffectedSubjects    int
	DataCategories      []string
	Type                Type
	Severity            Severity
	Description         string
	Cause               string
	RemediationMeasures []string
}

func (r RecordRequest) Validate() error {
	if r.BreachDate.IsZero() || r.DiscoveryDate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "breach and discovery dates required")
	}
	if r.DiscoveryDate.Before(r.BreachDate) {
		return dErrors.New(dErrors.CodeInvalidTimeline, "discovery date precedes breach date")
	}
	if !r.Severity.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid severity: "+string(r.Severity))
	}
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid breach type: "+string(r.Type))
	}
	if r.AffectedSubjects < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "affected subject count must not be negative")
	}
	return nil
}
