package models

import (
	"fmt"

	dErrors "consentd/pkg/domain-errors"
)

// RegisterRequest carries the grants and optional metadata for a consent
// registration. Zero values mean "not supplied".
type RegisterRequest struct {
	Grants           Grants
	LegalBasis       LegalBasis
	Purposes         []string
	RetentionDays    int
	WithdrawalMethod string
	ContactInfo      string
}

// Validate rejects grant names outside the schema and malformed metadata.
func (r RegisterRequest) Validate() error {
	for g := range r.Grants {
		if !g.IsValid() {
			return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("unknown grant: %s", g))
		}
	}
	if r.LegalBasis != "" && !r.LegalBasis.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("invalid legal basis: %s", r.LegalBasis))
	}
	if r.RetentionDays < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "retention period must not be negative")
	}
	return nil
}
