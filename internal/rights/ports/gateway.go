// Package ports defines the interfaces the rights processor consumes.
package ports

import (
	"context"
	"sort"
	"time"
)

// DataGateway reaches the subsystems that hold a subject's data. Both calls
// may be slow and may fail for some subsystems only.
type DataGateway interface {
	// Gather collects the subject's data from every subsystem. It fails if
	// any subsystem cannot be read, since a partial export is not an export.
	Gather(ctx context.Context, subjectID string) (*DataBundle, error)
	// Delete removes the subject's data everywhere. Per-subsystem outcomes
	// are reported in DeleteReport; err is reserved for failures that prevent
	// a report from being produced at all.
	Delete(ctx context.Context, subjectID string) (*DeleteReport, error)
}

// DataBundle is the subject's data keyed by subsystem name.
type DataBundle struct {
	SubjectID   string         `json:"subject_id"`
	CollectedAt time.Time      `json:"collected_at"`
	Sections    map[string]any `json:"sections"`
}

// SubsystemNames returns the bundle's section names in sorted order.
func (b *DataBundle) SubsystemNames() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.Sections))
	for name := range b.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubsystemResult is the outcome of deleting from one subsystem.
type SubsystemResult struct {
	Subsystem string `json:"subsystem"`
	Deleted   bool   `json:"deleted"`
	Records   int    `json:"records"`
	Error     string `json:"error,omitempty"`
}

// DeleteReport collects per-subsystem deletion outcomes.
type DeleteReport struct {
	Results []SubsystemResult `json:"results"`
}

// Failed lists subsystems whose deletion did not succeed.
func (r *DeleteReport) Failed() []string {
	if r == nil {
		return nil
	}
	var failed []string
	for _, res := range r.Results {
		if !res.Deleted {
			failed = append(failed, res.Subsystem)
		}
	}
	return failed
}

// OK reports whether every subsystem deleted successfully.
func (r *DeleteReport) OK() bool {
	return r != nil && len(r.Failed()) == 0
}
