// Package compliance derives a read-only compliance snapshot from the
// engine's registries: a summary, a 0-100 score and the recommendations
// that explain every point deducted.
package compliance

import (
	"time"

	consentmodels "consentd/internal/consent/models"
)

// Report is generated on demand and never stored.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Summary         Summary   `json:"summary"`
	Score           int       `json:"score"`
	Recommendations []string  `json:"recommendations"`
	Findings        []Finding `json:"findings"`
}

// Summary counts the entities the score is computed from.
type Summary struct {
	Consents           int                         `json:"consents"`
	ActiveGrants       map[consentmodels.Grant]int `json:"active_grants"`
	Activities         int                         `json:"activities"`
	Assessments        int                         `json:"assessments"`
	PendingAssessments int                         `json:"pending_assessments"`
	Breaches           int                         `json:"breaches"`
	RecentBreaches     int                         `json:"recent_breaches"`
	ProcessingRecords  int                         `json:"processing_records"`
}

// Finding is one rule hit. Subject names the activity or breach it concerns
// when the rule applies per entity.
type Finding struct {
	Rule      string `json:"rule"`
	Subject   string `json:"subject,omitempty"`
	Deduction int    `json:"deduction"`
	Detail    string `json:"detail"`
}
