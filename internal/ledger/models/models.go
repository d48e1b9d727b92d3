package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"time"

	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// GenesisHash is the PrevHash of the first record in the ledger.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// Record is one immutable processing event. Records are linked by hash:
// each Hash covers the record's content plus the previous record's Hash, so
// any edit or removal breaks every later link.
type Record struct {
	Sequence          int64
	ID                id.RecordID
	SubjectID         string
	ActivityID        id.ActivityID
	DataType          string
	Purpose           string
	LegalBasis        string
	Categories        []string
	RetentionDays     int
	Timestamp         time.Time
	ConsentID         id.ConsentID
	AutomatedDecision bool
	Profiling         bool
	PrevHash          string
	Hash              string
}

// hashedContent fixes field order so the encoding, and therefore the hash,
// is reproducible.
type hashedContent struct {
	Sequence          int64    `json:"seq"`
	ID                string   `json:"id"`
	SubjectID         string   `json:"subject_id"`
	ActivityID        string   `json:"activity_id"`
	DataType          string   `json:"data_type"`
	Purpose           string   `json:"purpose"`
	LegalBasis        string   `json:"legal_basis"`
	Categories        []string `json:"categories"`
	RetentionDays     int      `json:"retention_days"`
	Timestamp         string   `json:"ts"`
	ConsentID         string   `json:"consent_id"`
	AutomatedDecision bool     `json:"automated_decision"`
	Profiling         bool     `json:"profiling"`
	PrevHash          string   `json:"prev_hash"`
}

// ComputeHash returns the hex SHA-256 of the record content and PrevHash.
func (r *Record) ComputeHash() string {
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	payload, _ := json.Marshal(hashedContent{
		Sequence:          r.Sequence,
		ID:                string(r.ID),
		SubjectID:         r.SubjectID,
		ActivityID:        string(r.ActivityID),
		DataType:          r.DataType,
		Purpose:           r.Purpose,
		LegalBasis:        r.LegalBasis,
		Categories:        categories,
		RetentionDays:     r.RetentionDays,
		Timestamp:         r.Timestamp.UTC().Format(time.RFC3339Nano),
		ConsentID:         string(r.ConsentID),
		AutomatedDecision: r.AutomatedDecision,
		Profiling:         r.Profiling,
		PrevHash:          r.PrevHash,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Seal links the record after prev (nil for the first record) and sets Hash.
func (r *Record) Seal(prev *Record) {
	if prev == nil {
		r.Sequence = 1
		r.PrevHash = GenesisHash
	} else {
		r.Sequence = prev.Sequence + 1
		r.PrevHash = prev.Hash
	}
	r.Hash = r.ComputeHash()
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Categories = slices.Clone(r.Categories)
	return &cp
}

// RecordRequest describes a processing event. Purpose, LegalBasis and
// RetentionDays fall back to the catalog entry when left empty.
type RecordRequest struct {
	SubjectID         string
	ActivityID        id.ActivityID
	DataType          string
	Purpose           string
	LegalBasis        string
	Categories        []string
	RetentionDays     int
	AutomatedDecision bool
	Profiling         bool
}

func (r RecordRequest) Validate() error {
	if strings.TrimSpace(r.SubjectID) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "subject ID required")
	}
	if r.ActivityID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "activity ID required")
	}
	if strings.TrimSpace(r.DataType) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "data type required")
	}
	if r.RetentionDays < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "retention period must not be negative")
	}
	return nil
}

// ChainReport is the outcome of a full ledger verification.
type ChainReport struct {
	Records  int
	Valid    bool
	BrokenAt int64
	Reason   string
}
