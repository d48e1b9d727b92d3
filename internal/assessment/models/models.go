package models

import (
	"slices"
	"strings"
	"time"

	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// RiskLevel grades the inherent risk of a processing activity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Status is the approval state of an assessment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Assessment is a privacy impact assessment of one catalog activity.
//
// # Invariants
//
//   - Status moves pending→approved or pending→rejected, once.
//   - ApprovedBy and ApprovedAt are set exactly when Status is terminal.
type Assessment struct {
	ID             id.AssessmentID
	ActivityID     id.ActivityID
	AssessmentDate time.Time
	RiskLevel      RiskLevel
	SubjectCount   int
	DataCategories []string
	Purposes       []string
	Risks          []string
	Mitigations    []string
	ResidualRisks  []string
	Status         Status
	ApprovedBy     string
	ApprovedAt     *time.Time
}

// Decide moves a pending assessment to the given terminal status.
func (a *Assessment) Decide(to Status, approver string, now time.Time) error {
	if !to.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition, "assessments can only be approved or rejected")
	}
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidTransition, "assessment already "+string(a.Status))
	}
	a.Status = to
	a.ApprovedBy = approver
	a.ApprovedAt = &now
	return nil
}

func (a *Assessment) Clone() *Assessment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.DataCategories = slices.Clone(a.DataCategories)
	cp.Purposes = slices.Clone(a.Purposes)
	cp.Risks = slices.Clone(a.Risks)
	cp.Mitigations = slices.Clone(a.Mitigations)
	cp.ResidualRisks = slices.Clone(a.ResidualRisks)
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		cp.ApprovedAt = &t
	}
	return &cp
}

// CreateRequest carries the risk data of a new assessment.
type CreateRequest struct {
	RiskLevel      RiskLevel
	SubjectCount   int
	DataCategories []string
	Purposes       []string
	Risks          []string
	Mitigations    []string
	ResidualRisks  []string
}

func (r CreateRequest) Validate() error {
	if !r.RiskLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid risk level: "+string(r.RiskLevel))
	}
	if r.SubjectCount < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "subject count must not be negative")
	}
	return nil
}

// ValidateApprover rejects blank approver names.
func ValidateApprover(approver string) error {
	if strings.TrimSpace(approver) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "approver required")
	}
	return nil
}
