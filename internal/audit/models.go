package audit

import "time"

// Event is emitted from engine logic to capture governance actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	SubjectID string
	Action    Action
	Resource  string
	RequestID string
	Decision  string
	Reason    string
}

// Action names a governance action recorded in the audit trail.
type Action string

const (
	ActionConsentRegistered  Action = "consent_registered"
	ActionConsentUpdated     Action = "consent_updated"
	ActionGrantsWithdrawn    Action = "grants_withdrawn"
	ActionConsentErased      Action = "consent_erased"
	ActionAccessRequest      Action = "access_request"
	ActionPortabilityRequest Action = "portability_request"
	ActionErasureRequest     Action = "erasure_request"
	ActionBreachRecorded     Action = "breach_recorded"
	ActionBreachAdvanced     Action = "breach_status_advanced"
	ActionAssessmentCreated  Action = "assessment_created"
	ActionAssessmentDecided  Action = "assessment_decided"
)

// Decisions attached to events.
const (
	DecisionGranted   = "granted"
	DecisionDenied    = "denied"
	DecisionCompleted = "completed"
	DecisionFailed    = "failed"
)
