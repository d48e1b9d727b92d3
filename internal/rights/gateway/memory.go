package gateway

import (
	"context"
	"sync"
)

// MemorySubsystem keeps subject records in process. It backs local runs and
// tests; each subject maps to a list of opaque records.
type MemorySubsystem struct {
	name    string
	mu      sync.RWMutex
	records map[string][]any
}

func NewMemorySubsystem(name string) *MemorySubsystem {
	return &MemorySubsystem{
		name:    name,
		records: make(map[string][]any),
	}
}

func (m *MemorySubsystem) Name() string {
	return m.name
}

// Put appends a record for the subject.
func (m *MemorySubsystem) Put(subjectID string, record any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[subjectID] = append(m.records[subjectID], record)
}

func (m *MemorySubsystem) Export(ctx context.Context, subjectID string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs, ok := m.records[subjectID]
	if !ok {
		return nil, nil
	}
	out := make([]any, len(recs))
	copy(out, recs)
	return out, nil
}

func (m *MemorySubsystem) Delete(ctx context.Context, subjectID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records[subjectID])
	delete(m.records, subjectID)
	return n, nil
}

// Len returns the number of records held for the subject.
func (m *MemorySubsystem) Len(subjectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[subjectID])
}
