package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSubsystem struct {
	name string
	err  error
}

func (f failingSubsystem) Name() string { return f.name }

func (f failingSubsystem) Export(context.Context, string) (any, error) { return nil, f.err }

func (f failingSubsystem) Delete(context.Context, string) (int, error) { return 0, f.err }

type slowSubsystem struct{ name string }

func (s slowSubsystem) Name() string { return s.name }

func (s slowSubsystem) Export(ctx context.Context, _ string) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s slowSubsystem) Delete(ctx context.Context, _ string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestComposite_GatherMergesSections(t *testing.T) {
	profile := NewMemorySubsystem("profile")
	profile.Put("u1", map[string]any{"name": "Ada"})
	health := NewMemorySubsystem("health")
	health.Put("u1", map[string]any{"steps": 9000})
	health.Put("u1", map[string]any{"steps": 7000})
	empty := NewMemorySubsystem("billing")

	c := NewComposite([]Subsystem{profile, health, empty})
	bundle, err := c.Gather(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", bundle.SubjectID)
	assert.Equal(t, []string{"health", "profile"}, bundle.SubsystemNames(), "subsystems without data are omitted")
	assert.Len(t, bundle.Sections["health"], 2)
}

func TestComposite_GatherFailsOnAnySubsystem(t *testing.T) {
	profile := NewMemorySubsystem("profile")
	profile.Put("u1", "record")
	boom := errors.New("connection refused")

	c := NewComposite([]Subsystem{profile, failingSubsystem{name: "health", err: boom}})
	_, err := c.Gather(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "health")
}

func TestComposite_GatherTimesOut(t *testing.T) {
	c := NewComposite([]Subsystem{slowSubsystem{name: "archive"}}, WithTimeout(20*time.Millisecond))
	_, err := c.Gather(context.Background(), "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComposite_DeleteReportsEverySubsystem(t *testing.T) {
	profile := NewMemorySubsystem("profile")
	profile.Put("u1", "a")
	profile.Put("u1", "b")
	health := NewMemorySubsystem("health")

	c := NewComposite([]Subsystem{
		profile,
		failingSubsystem{name: "archive", err: errors.New("read-only")},
		health,
	})
	report, err := c.Delete(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "profile", report.Results[0].Subsystem)
	assert.True(t, report.Results[0].Deleted)
	assert.Equal(t, 2, report.Results[0].Records)
	assert.False(t, report.Results[1].Deleted)
	assert.Equal(t, "read-only", report.Results[1].Error)
	assert.True(t, report.Results[2].Deleted, "no data still counts as deleted")

	assert.Equal(t, []string{"archive"}, report.Failed())
	assert.False(t, report.OK())
	assert.Zero(t, profile.Len("u1"), "other subsystems still delete")
}

func TestComposite_DeleteNoSubsystems(t *testing.T) {
	report, err := NewComposite(nil).Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, report.OK())
}
