package httptransport

import (
	"time"

	assessmentmodels "consentd/internal/assessment/models"
	"consentd/internal/audit"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
	ledgermodels "consentd/internal/ledger/models"
	rightsmodels "consentd/internal/rights/models"
	"consentd/internal/rights/ports"
)

type ConsentResponse struct {
	ID               string          `json:"id"`
	SubjectID        string          `json:"subject_id"`
	Version          string          `json:"version"`
	ConsentDate      time.Time       `json:"consent_date"`
	LastUpdated      time.Time       `json:"last_updated"`
	Grants           map[string]bool `json:"grants"`
	LegalBasis       string          `json:"legal_basis"`
	Purposes         []string        `json:"purposes"`
	RetentionDays    int             `json:"retention_days"`
	WithdrawalMethod string          `json:"withdrawal_method"`
	ContactInfo      string          `json:"contact_info,omitempty"`
}

func toConsentResponse(c *consentmodels.Consent) *ConsentResponse {
	if c == nil {
		return nil
	}
	grants := make(map[string]bool, len(consentmodels.AllGrants))
	for _, g := range consentmodels.AllGrants {
		grants[string(g)] = c.Has(g)
	}
	return &ConsentResponse{
		ID:               c.ID.String(),
		SubjectID:        c.SubjectID,
		Version:          c.Version,
		ConsentDate:      c.ConsentDate,
		LastUpdated:      c.LastUpdated,
		Grants:           grants,
		LegalBasis:       string(c.LegalBasis),
		Purposes:         nonNil(c.Purposes),
		RetentionDays:    c.RetentionDays,
		WithdrawalMethod: c.WithdrawalMethod,
		ContactInfo:      c.ContactInfo,
	}
}

type GrantCheckResponse struct {
	SubjectID string `json:"subject_id"`
	Grant     string `json:"grant"`
	Granted   bool   `json:"granted"`
}

type RightsResponse struct {
	SubjectID         string    `json:"subject_id"`
	Access            bool      `json:"access"`
	Rectification     bool      `json:"rectification"`
	Erasure           bool      `json:"erasure"`
	Restriction       bool      `json:"restriction"`
	Portability       bool      `json:"portability"`
	Objection         bool      `json:"objection"`
	ConsentWithdrawal bool      `json:"consent_withdrawal"`
	Complaint         bool      `json:"complaint"`
	CreatedAt         time.Time `json:"created_at"`
}

func toRightsResponse(r *consentmodels.DataSubjectRights) *RightsResponse {
	if r == nil {
		return nil
	}
	return &RightsResponse{
		SubjectID:         r.SubjectID,
		Access:            r.Access,
		Rectification:     r.Rectification,
		Erasure:           r.Erasure,
		Restriction:       r.Restriction,
		Portability:       r.Portability,
		Objection:         r.Objection,
		ConsentWithdrawal: r.ConsentWithdrawal,
		Complaint:         r.Complaint,
		CreatedAt:         r.CreatedAt,
	}
}

type AccessResponse struct {
	RequestID   string            `json:"request_id"`
	SubjectID   string            `json:"subject_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Data        *ports.DataBundle `json:"data"`
	Consent     *ConsentResponse  `json:"consent"`
	Rights      *RightsResponse   `json:"rights"`
	ContactInfo string            `json:"contact_info,omitempty"`
}

func toAccessResponse(a *rightsmodels.AccessResponse) *AccessResponse {
	return &AccessResponse{
		RequestID:   a.RequestID.String(),
		SubjectID:   a.SubjectID,
		GeneratedAt: a.GeneratedAt,
		Data:        a.Data,
		Consent:     toConsentResponse(a.Consent),
		Rights:      toRightsResponse(a.Rights),
		ContactInfo: a.ContactInfo,
	}
}

type ErasureResponse struct {
	RequestID  string                  `json:"request_id"`
	SubjectID  string                  `json:"subject_id"`
	ConsentID  string                  `json:"consent_id"`
	ErasedAt   time.Time               `json:"erased_at"`
	Subsystems []ports.SubsystemResult `json:"subsystems"`
}

func toErasureResponse(e *rightsmodels.ErasureResponse) *ErasureResponse {
	return &ErasureResponse{
		RequestID:  e.RequestID.String(),
		SubjectID:  e.SubjectID,
		ConsentID:  e.ConsentID.String(),
		ErasedAt:   e.ErasedAt,
		Subsystems: e.Subsystems,
	}
}

type ActivityResponse struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Purpose               string    `json:"purpose"`
	LegalBasis            string    `json:"legal_basis"`
	DataCategories        []string  `json:"data_categories"`
	DataSubjectCategories []string  `json:"data_subject_categories"`
	Recipients            []string  `json:"recipients"`
	TransferDestinations  []string  `json:"transfer_destinations"`
	RetentionDays         int       `json:"retention_days"`
	SecurityMeasures      []string  `json:"security_measures"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toActivityResponse(a *catalogmodels.Activity) ActivityResponse {
	return ActivityResponse{
		ID:                    a.ID.String(),
		Name:                  a.Name,
		Purpose:               a.Purpose,
		LegalBasis:            a.LegalBasis,
		DataCategories:        nonNil(a.DataCategories),
		DataSubjectCategories: nonNil(a.DataSubjectCategories),
		Recipients:            nonNil(a.Recipients),
		TransferDestinations:  nonNil(a.TransferDestinations),
		RetentionDays:         a.RetentionDays,
		SecurityMeasures:      nonNil(a.SecurityMeasures),
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

type ProcessingRecordResponse struct {
	Sequence          int64     `json:"sequence"`
	ID                string    `json:"id"`
	SubjectID         string    `json:"subject_id"`
	ActivityID        string    `json:"activity_id"`
	DataType          string    `json:"data_type"`
	Purpose           string    `json:"purpose"`
	LegalBasis        string    `json:"legal_basis"`
	Categories        []string  `json:"categories"`
	RetentionDays     int       `json:"retention_days"`
	Timestamp         time.Time `json:"timestamp"`
	ConsentID         string    `json:"consent_id,omitempty"`
	AutomatedDecision bool      `json:"automated_decision"`
	Profiling         bool      `json:"profiling"`
	PrevHash          string    `json:"prev_hash"`
	Hash              string    `json:"hash"`
}

func toProcessingRecordResponse(r *ledgermodels.Record) ProcessingRecordResponse {
	return ProcessingRecordResponse{
		Sequence:          r.Sequence,
		ID:                r.ID.String(),
		SubjectID:         r.SubjectID,
		ActivityID:        r.ActivityID.String(),
		DataType:          r.DataType,
		Purpose:           r.Purpose,
		LegalBasis:        r.LegalBasis,
		Categories:        nonNil(r.Categories),
		RetentionDays:     r.RetentionDays,
		Timestamp:         r.Timestamp,
		ConsentID:         r.ConsentID.String(),
		AutomatedDecision: r.AutomatedDecision,
		Profiling:         r.Profiling,
		PrevHash:          r.PrevHash,
		Hash:              r.Hash,
	}
}

type ChainReportResponse struct {
	Records  int    `json:"records"`
	Valid    bool   `json:"valid"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type AssessmentResponse struct {
	ID             string     `json:"id"`
	ActivityID     string     `json:"activity_id"`
	AssessmentDate time.Time  `json:"assessment_date"`
	RiskLevel      string     `json:"risk_level"`
	SubjectCount   int        `json:"subject_count"`
	DataCategories []string   `json:"data_categories"`
	Purposes       []string   `json:"purposes"`
	Risks          []string   `json:"risks"`
	Mitigations    []string   `json:"mitigations"`
	ResidualRisks  []string   `json:"residual_risks"`
	Status         string     `json:"status"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
}

func toAssessmentResponse(a *assessmentmodels.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:             a.ID.String(),
		ActivityID:     a.ActivityID.String(),
		AssessmentDate: a.AssessmentDate,
		RiskLevel:      string(a.RiskLevel),
		SubjectCount:   a.SubjectCount,
		DataCategories: nonNil(a.DataCategories),
		Purposes:       nonNil(a.Purposes),
		Risks:          nonNil(a.Risks),
		Mitigations:    nonNil(a.Mitigations),
		ResidualRisks:  nonNil(a.ResidualRisks),
		Status:         string(a.Status),
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
	}
}

type BreachResponse struct {
	ID                     string     `json:"id"`
	BreachDate             time.Time  `json:"breach_date"`
	DiscoveryDate          time.Time  `json:"discovery_date"`
	NotificationDate       *time.Time `json:"notification_date,omitempty"`
	AffectedSubjects       int        `json:"affected_subjects"`
	DataCategories         []string   `json:"data_categories"`
	Type                   string     `json:"type"`
	Severity               string     `json:"severity"`
	Description            string     `json:"description"`
	Cause                  string     `json:"cause"`
	RemediationMeasures    []string   `json:"remediation_measures"`
	Status                 string     `json:"status"`
	RegulatoryNotification bool       `json:"regulatory_notification"`
	SubjectNotification    bool       `json:"subject_notification"`
	ReportedTo             string     `json:"reported_to,omitempty"`
	ReportedAt             *time.Time `json:"reported_at,omitempty"`
}

func toBreachResponse(b *breachmodels.Breach) BreachResponse {
	return BreachResponse{
		ID:                     b.ID.String(),
		BreachDate:             b.BreachDate,
		DiscoveryDate:          b.DiscoveryDate,
		NotificationDate:       b.NotificationDate,
		AffectedSubjects:       b.AffectedSubjects,
		DataCategories:         nonNil(b.DataCategories),
		Type:                   string(b.Type),
		Severity:               string(b.Severity),
		Description:            b.Description,
		Cause:                  b.Cause,
		RemediationMeasures:    nonNil(b.RemediationMeasures),
		Status:                 string(b.Status),
		RegulatoryNotification: b.RegulatoryNotification,
		SubjectNotification:    b.SubjectNotification,
		ReportedTo:             b.ReportedTo,
		ReportedAt:             b.ReportedAt,
	}
}

type AuditEventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func toAuditEventResponse(e audit.Event) AuditEventResponse {
	return AuditEventResponse{
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		Resource:  e.Resource,
		RequestID: e.RequestID,
		Decision:  e.Decision,
		Reason:    e.Reason,
	}
}

// ListResponse wraps collections so the envelope can grow without breaking
// clients.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[S any, T any](in []S, conv func(S) T) ListResponse[T] {
	items := make([]T, len(in))
	for i, v := range in {
		items[i] = conv(v)
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
