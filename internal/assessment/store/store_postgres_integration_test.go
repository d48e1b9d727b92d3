//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"consentd/internal/assessment/models"
	"consentd/internal/assessment/store"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) newAssessment(assessmentID, activityID string, at time.Time) *models.Assessment {
	return &models.Assessment{
		ID:             id.AssessmentID(assessmentID),
		ActivityID:     id.ActivityID(activityID),
		AssessmentDate: at,
		RiskLevel:      models.RiskHigh,
		SubjectCount:   5000,
		Purposes:       []string{"fraud screening"},
		Risks:          []string{"profiling"},
		Status:         models.StatusPending,
	}
}

func (s *PostgresStoreSuite) TestRoundTripAndConflict() {
	ctx := context.Background()
	a := s.newAssessment("assessment_1", "activity_1", s.now)
	s.Require().NoError(s.store.Create(ctx, a))
	s.ErrorIs(s.store.Create(ctx, a), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal([]string{"profiling"}, found.Risks)
	s.Empty(found.Mitigations)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.ApprovedAt)

	_, err = s.store.FindByID(ctx, "assessment_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDecideOnce() {
	ctx := context.Background()
	a := s.newAssessment("assessment_2", "activity_1", s.now)
	s.Require().NoError(s.store.Create(ctx, a))

	decided, err := s.store.Execute(ctx, a.ID, func(a *models.Assessment) error {
		return a.Decide(models.StatusApproved, "dpo@example.com", s.now)
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	_, err = s.store.Execute(ctx, a.ID, func(a *models.Assessment) error {
		return a.Decide(models.StatusRejected, "someone else", s.now)
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Equal("dpo@example.com", found.ApprovedBy)
}

func (s *PostgresStoreSuite) TestListByActivity() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newAssessment("assessment_b", "activity_1", s.now)))
	s.Require().NoError(s.store.Create(ctx, s.newAssessment("assessment_a", "activity_1", s.now.Add(-time.Hour))))
	s.Require().NoError(s.store.Create(ctx, s.newAssessment("assessment_c", "activity_2", s.now)))

	list, err := s.store.ListByActivity(ctx, "activity_1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(id.AssessmentID("assessment_a"), list[0].ID)

	none, err := s.store.ListByActivity(ctx, "activity_9")
	s.Require().NoError(err)
	s.Empty(none)

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}
