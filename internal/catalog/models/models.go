package models

import (
	"slices"
	"strings"
	"time"

	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// Activity is a declared data-processing activity (GDPR Art. 30 record).
// Entries are reference data: created once, never edited by the engine.
type Activity struct {
	ID                    id.ActivityID
	Name                  string
	Purpose               string
	LegalBasis            string
	DataCategories        []string
	DataSubjectCategories []string
	Recipients            []string
	TransferDestinations  []string
	RetentionDays         int
	SecurityMeasures      []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Validate enforces the insert-time rules for catalog entries.
func (a *Activity) Validate() error {
	if a.ID.IsNil() || strings.TrimSpace(string(a.ID)) == "" {
		return dErrors.New(dErrors.CodeInvalidActivity, "activity ID required")
	}
	if a.RetentionDays <= 0 {
		return dErrors.New(dErrors.CodeInvalidActivity, "retention period must be positive")
	}
	if len(a.DataCategories) == 0 {
		return dErrors.New(dErrors.CodeInvalidActivity, "at least one data category required")
	}
	if strings.TrimSpace(a.LegalBasis) == "" {
		return dErrors.New(dErrors.CodeInvalidActivity, "legal basis required")
	}
	return nil
}

// Clone returns a deep copy.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	cp := *a
	cp.DataCategories = slices.Clone(a.DataCategories)
	cp.DataSubjectCategories = slices.Clone(a.DataSubjectCategories)
	cp.Recipients = slices.Clone(a.Recipients)
	cp.TransferDestinations = slices.Clone(a.TransferDestinations)
	cp.SecurityMeasures = slices.Clone(a.SecurityMeasures)
	return &cp
}
