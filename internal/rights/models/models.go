package models

import (
	"encoding/json"
	"fmt"
	"time"

	consentmodels "consentd/internal/consent/models"
	"consentd/internal/rights/ports"
	id "consentd/pkg/domain"
)

// AccessResponse answers a right-of-access request (GDPR Art. 15).
type AccessResponse struct {
	RequestID   id.RequestID
	SubjectID   string
	GeneratedAt time.Time
	Data        *ports.DataBundle
	Consent     *consentmodels.Consent
	Rights      *consentmodels.DataSubjectRights
	ContactInfo string
}

// ErasureResponse confirms a completed erasure (GDPR Art. 17).
type ErasureResponse struct {
	RequestID  id.RequestID
	SubjectID  string
	ConsentID  id.ConsentID
	ErasedAt   time.Time
	Subsystems []ports.SubsystemResult
}

// Portability envelope constants.
const (
	PortabilityFormat  = "application/json"
	PortabilityVersion = "1.0"
	PortabilitySchema  = "consentd.portability"
)

// PortabilityEnvelope is the machine-readable export of a subject's data
// (GDPR Art. 20). Schema describes the envelope so consumers can validate it
// without out-of-band knowledge.
type PortabilityEnvelope struct {
	RequestID  id.RequestID     `json:"request_id"`
	Format     string           `json:"format"`
	Version    string           `json:"version"`
	Schema     SchemaDescriptor `json:"schema"`
	ExportedAt time.Time        `json:"exported_at"`
	SubjectID  string           `json:"subject_id"`
	Consent    PortableConsent  `json:"consent"`
	Data       map[string]any   `json:"data"`
}

// PortableConsent is the consent as it appears in an export.
type PortableConsent struct {
	ID            string          `json:"id"`
	Version       string          `json:"version"`
	ConsentDate   time.Time       `json:"consent_date"`
	LastUpdated   time.Time       `json:"last_updated"`
	Grants        map[string]bool `json:"grants"`
	LegalBasis    string          `json:"legal_basis"`
	Purposes      []string        `json:"purposes"`
	RetentionDays int             `json:"retention_days"`
}

// SchemaDescriptor names and types every field of the envelope.
type SchemaDescriptor struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Fields  []FieldDescriptor `json:"fields"`
}

type FieldDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// PortabilitySchemaDescriptor describes PortabilityEnvelope at
// PortabilityVersion.
func PortabilitySchemaDescriptor() SchemaDescriptor {
	return SchemaDescriptor{
		Name:    PortabilitySchema,
		Version: PortabilityVersion,
		Fields: []FieldDescriptor{
			{Name: "request_id", Type: "string", Description: "identifier of the export request"},
			{Name: "format", Type: "string", Description: "media type of this document"},
			{Name: "version", Type: "string", Description: "envelope version"},
			{Name: "schema", Type: "object", Description: "this descriptor"},
			{Name: "exported_at", Type: "string(date-time)", Description: "RFC 3339 export time"},
			{Name: "subject_id", Type: "string", Description: "data subject identifier"},
			{Name: "consent", Type: "object", Description: "consent in force at export time"},
			{Name: "consent.grants", Type: "object<string,boolean>", Description: "grant name to given flag"},
			{Name: "data", Type: "object<string,any>", Description: "subject data keyed by source subsystem"},
		},
	}
}

// NewPortableConsent flattens a consent for export.
func NewPortableConsent(c *consentmodels.Consent) PortableConsent {
	grants := make(map[string]bool, len(c.Grants))
	for g, v := range c.Grants {
		grants[string(g)] = v
	}
	return PortableConsent{
		ID:            c.ID.String(),
		Version:       c.Version,
		ConsentDate:   c.ConsentDate,
		LastUpdated:   c.LastUpdated,
		Grants:        grants,
		LegalBasis:    string(c.LegalBasis),
		Purposes:      c.Purposes,
		RetentionDays: c.RetentionDays,
	}
}

// Encode serializes the envelope as indented JSON.
func (e *PortabilityEnvelope) Encode() ([]byte, error) {
	out, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode portability envelope: %w", err)
	}
	return out, nil
}
