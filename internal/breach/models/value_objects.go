package models

// Severity grades a breach. High and critical breaches require regulator
// notification.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RequiresRegulatorNotification reports whether the supervisory authority
// must be told.
func (s Severity) RequiresRegulatorNotification() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// RequiresSubjectNotification reports whether affected subjects must be told
// directly.
func (s Severity) RequiresSubjectNotification() bool {
	return s == SeverityCritical
}

// Type is the security property a breach compromised.
type Type string

const (
	TypeConfidentiality Type = "confidentiality"
	TypeIntegrity       Type = "integrity"
	TypeAvailability    Type = "availability"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeConfidentiality, TypeIntegrity, TypeAvailability:
		return true
	}
	return false
}

// Status is the handling stage of a breach.
type Status string

const (
	StatusInvestigating Status = "investigating"
	StatusContained     Status = "contained"
	StatusResolved      Status = "resolved"
	StatusReported      Status = "reported"
)

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions lists the statuses reachable from each status. A breach that
// never needed containment may go straight to resolved. Moving to reported
// additionally needs a confirmed notification.
var transitions = map[Status][]Status{
	StatusInvestigating: {StatusContained, StatusResolved, StatusReported},
	StatusContained:     {StatusResolved, StatusReported},
	StatusResolved:      {StatusReported},
	StatusReported:      nil,
}

// CanTransitionTo reports whether next is a forward move from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
