package models

// Grant names one category of processing a data subject can agree to.
// The string values are the wire names used by callers.
type Grant string

const (
	GrantDataProcessing          Grant = "dataProcessing"
	GrantAnalytics               Grant = "analytics"
	GrantMarketing               Grant = "marketing"
	GrantDataSharing             Grant = "dataSharing"
	GrantDataRetention           Grant = "dataRetention"
	GrantProfiling               Grant = "profiling"
	GrantAutomatedDecisionMaking Grant = "automatedDecisionMaking"
	GrantThirdPartySharing       Grant = "thirdPartySharing"
	GrantDataPortability         Grant = "dataPortability"
	GrantRightToErasure          Grant = "rightToErasure"
)

// AllGrants lists every grant in a stable order for reporting.
var AllGrants = []Grant{
	GrantDataProcessing,
	GrantAnalytics,
	GrantMarketing,
	GrantDataSharing,
	GrantDataRetention,
	GrantProfiling,
	GrantAutomatedDecisionMaking,
	GrantThirdPartySharing,
	GrantDataPortability,
	GrantRightToErasure,
}

// ValidGrants is the single source of truth for the consent schema.
var ValidGrants = func() map[Grant]bool {
	m := make(map[Grant]bool, len(AllGrants))
	for _, g := range AllGrants {
		m[g] = true
	}
	return m
}()

// IsValid checks if the grant is part of the current consent schema.
func (g Grant) IsValid() bool {
	return ValidGrants[g]
}

// LegalBasis is the lawful justification for processing (GDPR Art. 6).
type LegalBasis string

const (
	LegalBasisConsent             LegalBasis = "consent"
	LegalBasisContract            LegalBasis = "contract"
	LegalBasisLegalObligation     LegalBasis = "legal_obligation"
	LegalBasisVitalInterests      LegalBasis = "vital_interests"
	LegalBasisPublicTask          LegalBasis = "public_task"
	LegalBasisLegitimateInterests LegalBasis = "legitimate_interests"
)

// IsValid checks if the legal basis is one of the supported enum values.
func (b LegalBasis) IsValid() bool {
	switch b {
	case LegalBasisConsent, LegalBasisContract, LegalBasisLegalObligation,
		LegalBasisVitalInterests, LegalBasisPublicTask, LegalBasisLegitimateInterests:
		return true
	}
	return false
}
