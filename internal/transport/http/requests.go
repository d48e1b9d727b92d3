package httptransport

import (
	"time"

	assessmentmodels "consentd/internal/assessment/models"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
	ledgermodels "consentd/internal/ledger/models"
	id "consentd/pkg/domain"
	strutil "consentd/pkg/platform/strings"
	"consentd/pkg/validation"
)

// RegisterConsentRequest replaces or merges the subject's grants. Omitted
// optional fields keep their stored values.
type RegisterConsentRequest struct {
	Grants           map[string]bool `json:"grants" validate:"required"`
	LegalBasis       string          `json:"legal_basis,omitempty"`
	Purposes         []string        `json:"purposes,omitempty"`
	RetentionDays    int             `json:"retention_days,omitempty" validate:"gte=0"`
	WithdrawalMethod string          `json:"withdrawal_method,omitempty" validate:"max=200"`
	ContactInfo      string          `json:"contact_info,omitempty" validate:"max=200"`
}

func (r *RegisterConsentRequest) Normalize() {
	r.Purposes = strutil.DedupeAndTrim(r.Purposes)
}

func (r *RegisterConsentRequest) Validate() error {
	return validation.CheckList("purposes", r.Purposes, validation.MaxPurposes)
}

func (r *RegisterConsentRequest) toModel() consentmodels.RegisterRequest {
	grants := make(consentmodels.Grants, len(r.Grants))
	for name, given := range r.Grants {
		grants[consentmodels.Grant(name)] = given
	}
	return consentmodels.RegisterRequest{
		Grants:           grants,
		LegalBasis:       consentmodels.LegalBasis(r.LegalBasis),
		Purposes:         r.Purposes,
		RetentionDays:    r.RetentionDays,
		WithdrawalMethod: r.WithdrawalMethod,
		ContactInfo:      r.ContactInfo,
	}
}

type WithdrawRequest struct {
	Grants []string `json:"grants" validate:"required,min=1"`
}

func (r *WithdrawRequest) Normalize() {
	r.Grants = strutil.DedupeAndTrim(r.Grants)
}

func (r *WithdrawRequest) toModel() []consentmodels.Grant {
	out := make([]consentmodels.Grant, len(r.Grants))
	for i, g := range r.Grants {
		out[i] = consentmodels.Grant(g)
	}
	return out
}

type ActivityRequest struct {
	ID                    string   `json:"id" validate:"required,notblank,max=100"`
	Name                  string   `json:"name" validate:"required,notblank,max=200"`
	Purpose               string   `json:"purpose" validate:"required,notblank,max=500"`
	LegalBasis            string   `json:"legal_basis" validate:"required,notblank"`
	DataCategories        []string `json:"data_categories"`
	DataSubjectCategories []string `json:"data_subject_categories"`
	Recipients            []string `json:"recipients"`
	TransferDestinations  []string `json:"transfer_destinations"`
	RetentionDays         int      `json:"retention_days" validate:"gte=0"`
	SecurityMeasures      []string `json:"security_measures"`
}

func (r *ActivityRequest) Normalize() {
	r.DataCategories = strutil.DedupeAndTrim(r.DataCategories)
	r.DataSubjectCategories = strutil.DedupeAndTrim(r.DataSubjectCategories)
	r.Recipients = strutil.DedupeAndTrim(r.Recipients)
	r.TransferDestinations = strutil.DedupeAndTrim(r.TransferDestinations)
	r.SecurityMeasures = strutil.DedupeAndTrim(r.SecurityMeasures)
}

func (r *ActivityRequest) Validate() error {
	return validation.CheckList("data_categories", r.DataCategories, validation.MaxCategories)
}

func (r *ActivityRequest) toModel() catalogmodels.Activity {
	return catalogmodels.Activity{
		ID:                    id.ActivityID(r.ID),
		Name:                  r.Name,
		Purpose:               r.Purpose,
		LegalBasis:            r.LegalBasis,
		DataCategories:        r.DataCategories,
		DataSubjectCategories: r.DataSubjectCategories,
		Recipients:            r.Recipients,
		TransferDestinations:  r.TransferDestinations,
		RetentionDays:         r.RetentionDays,
		SecurityMeasures:      r.SecurityMeasures,
	}
}

type ProcessingRecordRequest struct {
	SubjectID         string   `json:"subject_id" validate:"required,notblank,max=128"`
	ActivityID        string   `json:"activity_id" validate:"required,notblank"`
	DataType          string   `json:"data_type" validate:"required,notblank,max=100"`
	Purpose           string   `json:"purpose" validate:"max=500"`
	LegalBasis        string   `json:"legal_basis"`
	Categories        []string `json:"categories"`
	RetentionDays     int      `json:"retention_days" validate:"gte=0"`
	AutomatedDecision bool     `json:"automated_decision"`
	Profiling         bool     `json:"profiling"`
}

func (r *ProcessingRecordRequest) Normalize() {
	r.Categories = strutil.DedupeAndTrim(r.Categories)
}

func (r *ProcessingRecordRequest) toModel() ledgermodels.RecordRequest {
	return ledgermodels.RecordRequest{
		SubjectID:         r.SubjectID,
		ActivityID:        id.ActivityID(r.ActivityID),
		DataType:          r.DataType,
		Purpose:           r.Purpose,
		LegalBasis:        r.LegalBasis,
		Categories:        r.Categories,
		RetentionDays:     r.RetentionDays,
		AutomatedDecision: r.AutomatedDecision,
		Profiling:         r.Profiling,
	}
}

type AssessmentRequest struct {
	RiskLevel      string   `json:"risk_level" validate:"required,oneof=low medium high"`
	SubjectCount   int      `json:"subject_count" validate:"gte=0"`
	DataCategories []string `json:"data_categories"`
	Purposes       []string `json:"purposes"`
	Risks          []string `json:"risks"`
	Mitigations    []string `json:"mitigations"`
	ResidualRisks  []string `json:"residual_risks"`
}

func (r *AssessmentRequest) Normalize() {
	r.DataCategories = strutil.DedupeAndTrim(r.DataCategories)
	r.Purposes = strutil.DedupeAndTrim(r.Purposes)
}

func (r *AssessmentRequest) toModel() assessmentmodels.CreateRequest {
	return assessmentmodels.CreateRequest{
		RiskLevel:      assessmentmodels.RiskLevel(r.RiskLevel),
		SubjectCount:   r.SubjectCount,
		DataCategories: r.DataCategories,
		Purposes:       r.Purposes,
		Risks:          r.Risks,
		Mitigations:    r.Mitigations,
		ResidualRisks:  r.ResidualRisks,
	}
}

type BreachRequest struct {
	BreachDate          time.Time `json:"breach_date" validate:"required"`
	DiscoveryDate       time.Time `json:"discovery_date" validate:"required"`
	AffectedSubjects    int       `json:"affected_subjects" validate:"gte=0"`
	DataCategories      []string  `json:"data_categories"`
	Type                string    `json:"type" validate:"required"`
	Severity            string    `json:"severity" validate:"required"`
	Description         string    `json:"description" validate:"max=2000"`
	Cause               string    `json:"cause" validate:"max=2000"`
	RemediationMeasures []string  `json:"remediation_measures"`
}

func (r *BreachRequest) Normalize() {
	r.DataCategories = strutil.DedupeAndTrim(r.DataCategories)
}

func (r *BreachRequest) toModel() breachmodels.RecordRequest {
	return breachmodels.RecordRequest{
		BreachDate:          r.BreachDate,
		DiscoveryDate:       r.DiscoveryDate,
		AffectedSubjects:    r.AffectedSubjects,
		DataCategories:      r.DataCategories,
		Type:                breachmodels.Type(r.Type),
		Severity:            breachmodels.Severity(r.Severity),
		Description:         r.Description,
		Cause:               r.Cause,
		RemediationMeasures: r.RemediationMeasures,
	}
}

type BreachStatusRequest struct {
	Status     string `json:"status" validate:"required"`
	ReportedTo string `json:"reported_to,omitempty" validate:"max=200"`
}
