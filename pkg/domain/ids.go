// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "consentd/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a BreachID where an AssessmentID is expected.
type (
	ConsentID    string
	RequestID    string
	RecordID     string
	AssessmentID string
	BreachID     string
	ActivityID   string
)

// Kind selects the prefix of a generated identifier.
type Kind string

const (
	KindConsent    Kind = "consent"
	KindRequest    Kind = "req"
	KindRecord     Kind = "rec"
	KindAssessment Kind = "pia"
	KindBreach     Kind = "breach"
)

// IDGenerator supplies collision-resistant identifiers.
// Implementations must be safe for concurrent use.
type IDGenerator interface {
	NewID(kind Kind) string
}

// UUIDGenerator mints "<kind>_<uuidv7>" identifiers. UUIDv7 keeps IDs roughly
// time-ordered, which makes ledger and breach listings easy to scan.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default generator.
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID(kind Kind) string {
	id, err := uuid.NewV7()
	if err != nil {
		// entropy failure for v7; v4 keeps us collision resistant
		id = uuid.New()
	}
	return fmt.Sprintf("%s_%s", kind, id.String())
}

func NewConsentID(g IDGenerator) ConsentID       { return ConsentID(g.NewID(KindConsent)) }
func NewRequestID(g IDGenerator) RequestID       { return RequestID(g.NewID(KindRequest)) }
func NewRecordID(g IDGenerator) RecordID         { return RecordID(g.NewID(KindRecord)) }
func NewAssessmentID(g IDGenerator) AssessmentID { return AssessmentID(g.NewID(KindAssessment)) }
func NewBreachID(g IDGenerator) BreachID         { return BreachID(g.NewID(KindBreach)) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseAssessmentID(s string) (AssessmentID, error) {
	v, err := parsePrefixed(s, KindAssessment, "assessment ID")
	return AssessmentID(v), err
}

func ParseBreachID(s string) (BreachID, error) {
	v, err := parsePrefixed(s, KindBreach, "breach ID")
	return BreachID(v), err
}

// ParseActivityID accepts any non-blank slug; catalog IDs are human-chosen.
func ParseActivityID(s string) (ActivityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "activity ID cannot be empty")
	}
	return ActivityID(s), nil
}

// String methods - for logging and debugging.

func (id ConsentID) String() string    { return string(id) }
func (id RequestID) String() string    { return string(id) }
func (id RecordID) String() string     { return string(id) }
func (id AssessmentID) String() string { return string(id) }
func (id BreachID) String() string     { return string(id) }
func (id ActivityID) String() string   { return string(id) }

// IsNil checks - used for service-layer validation.

func (id ConsentID) IsNil() bool    { return id == "" }
func (id AssessmentID) IsNil() bool { return id == "" }
func (id BreachID) IsNil() bool     { return id == "" }
func (id ActivityID) IsNil() bool   { return id == "" }

// parsePrefixed is the shared validation logic for generated identifiers.
func parsePrefixed(s string, kind Kind, label string) (string, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, label+" cannot be empty")
	}
	rest, ok := strings.CutPrefix(s, string(kind)+"_")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid "+label+" format")
	}
	if _, err := uuid.Parse(rest); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid "+label+" format")
	}
	return s, nil
}
