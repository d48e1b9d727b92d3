package models

import (
	"maps"
	"slices"
	"time"

	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// SchemaVersion is stamped on every consent so readers can tell which grant
// set was in force when it was recorded.
const SchemaVersion = "1.0"

// Defaults applied when a first registration omits the optional fields.
const (
	DefaultRetentionDays    = 365
	DefaultWithdrawalMethod = "in_app_privacy_settings"
)

// Grants maps grant names to whether they are currently given.
type Grants map[Grant]bool

// Clone returns an independent copy.
func (g Grants) Clone() Grants {
	if g == nil {
		return Grants{}
	}
	return maps.Clone(g)
}

// Consent is the single active consent record of a data subject.
//
// # Invariants
//
//   - At most one Consent exists per SubjectID (enforced by the store).
//   - LastUpdated is never before ConsentDate.
//   - A grant that is absent from Grants counts as not given.
type Consent struct {
	ID               id.ConsentID
	SubjectID        string
	Version          string
	ConsentDate      time.Time
	LastUpdated      time.Time
	Grants           Grants
	LegalBasis       LegalBasis
	Purposes         []string
	RetentionDays    int
	WithdrawalMethod string
	ContactInfo      string
}

// NewConsent creates a Consent with domain invariant checks.
func NewConsent(consentID id.ConsentID, subjectID string, now time.Time) (*Consent, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "consent ID required")
	}
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "consent time required")
	}
	return &Consent{
		ID:               consentID,
		SubjectID:        subjectID,
		Version:          SchemaVersion,
		ConsentDate:      now,
		LastUpdated:      now,
		Grants:           Grants{},
		LegalBasis:       LegalBasisConsent,
		RetentionDays:    DefaultRetentionDays,
		WithdrawalMethod: DefaultWithdrawalMethod,
	}, nil
}

// Has reports whether the grant is explicitly given.
func (c *Consent) Has(g Grant) bool {
	if c == nil {
		return false
	}
	return c.Grants[g]
}

// Apply merges a registration into the consent. Grants in the request
// overwrite existing values; grants not mentioned keep their state. Optional
// fields only overwrite when supplied.
func (c *Consent) Apply(req RegisterRequest, now time.Time) {
	if c.Grants == nil {
		c.Grants = Grants{}
	}
	for g, v := range req.Grants {
		c.Grants[g] = v
	}
	if req.LegalBasis != "" {
		c.LegalBasis = req.LegalBasis
	}
	if len(req.Purposes) > 0 {
		c.Purposes = slices.Clone(req.Purposes)
	}
	if req.RetentionDays > 0 {
		c.RetentionDays = req.RetentionDays
	}
	if req.WithdrawalMethod != "" {
		c.WithdrawalMethod = req.WithdrawalMethod
	}
	if req.ContactInfo != "" {
		c.ContactInfo = req.ContactInfo
	}
	c.touch(now)
}

// Withdraw clears the named grants and returns the ones that were given
// before the call. Unknown names are ignored.
func (c *Consent) Withdraw(grants []Grant, now time.Time) []Grant {
	if c.Grants == nil {
		c.Grants = Grants{}
	}
	var changed []Grant
	for _, g := range grants {
		if !g.IsValid() {
			continue
		}
		if c.Grants[g] {
			changed = append(changed, g)
		}
		c.Grants[g] = false
	}
	c.touch(now)
	return changed
}

// touch advances LastUpdated without ever moving it behind ConsentDate or
// backwards in time.
func (c *Consent) touch(now time.Time) {
	if now.Before(c.LastUpdated) {
		now = c.LastUpdated
	}
	if now.Before(c.ConsentDate) {
		now = c.ConsentDate
	}
	c.LastUpdated = now
}

// Clone returns a deep copy so callers never share maps with a store.
func (c *Consent) Clone() *Consent {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Grants = c.Grants.Clone()
	cp.Purposes = slices.Clone(c.Purposes)
	return &cp
}

// ActiveGrants returns the given grants in AllGrants order.
func (c *Consent) ActiveGrants() []Grant {
	var out []Grant
	for _, g := range AllGrants {
		if c.Has(g) {
			out = append(out, g)
		}
	}
	return out
}

// DataSubjectRights is the capability set paired with a Consent. Rights are
// legal entitlements rather than grants, so every flag is true today; the
// separate entity leaves room for jurisdiction-specific sets.
type DataSubjectRights struct {
	SubjectID         string
	Access            bool
	Rectification     bool
	Erasure           bool
	Restriction       bool
	Portability       bool
	Objection         bool
	ConsentWithdrawal bool
	Complaint         bool
	CreatedAt         time.Time
}

// DefaultRights returns the full entitlement set for a subject.
func DefaultRights(subjectID string, now time.Time) *DataSubjectRights {
	return &DataSubjectRights{
		SubjectID:         subjectID,
		Access:            true,
		Rectification:     true,
		Erasure:           true,
		Restriction:       true,
		Portability:       true,
		Objection:         true,
		ConsentWithdrawal: true,
		Complaint:         true,
		CreatedAt:         now,
	}
}
