package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentd/pkg/domain-errors"
)

func TestDecide_TransitionTable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	statuses := []Status{StatusPending, StatusApproved, StatusRejected}

	for _, from := range statuses {
		for _, to := range statuses {
			a := &Assessment{Status: from}
			err := a.Decide(to, "dpo", now)
			allowed := from == StatusPending && to.IsTerminal()
			if allowed {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, a.Status)
				assert.Equal(t, "dpo", a.ApprovedBy)
				require.NotNil(t, a.ApprovedAt)
				assert.Equal(t, now, *a.ApprovedAt)
				continue
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition), "%s -> %s", from, to)
			assert.Equal(t, from, a.Status)
		}
	}
}

func TestCreateRequest_Validate(t *testing.T) {
	assert.NoError(t, CreateRequest{RiskLevel: RiskHigh}.Validate())
	assert.True(t, dErrors.IsInvalidArgument(CreateRequest{RiskLevel: "extreme"}.Validate()))
	assert.True(t, dErrors.IsInvalidArgument(CreateRequest{RiskLevel: RiskLow, SubjectCount: -1}.Validate()))
}
