//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"consentd/internal/consent/models"
	"consentd/internal/consent/store"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/testutil"
	"consentd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
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
}

func (s *PostgresStoreSuite) newConsent(subjectID string) *models.Consent {
	now := time.Now().UTC().Truncate(time.Microsecond)
	c, err := models.NewConsent(id.ConsentID("consent_"+subjectID), subjectID, now)
	s.Require().NoError(err)
	c.Grants[models.GrantDataProcessing] = true
	c.Purposes = []string{"service delivery"}
	return c
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	consent := s.newConsent("u1")
	s.Require().NoError(s.store.Create(ctx, consent, models.DefaultRights("u1", consent.ConsentDate)))

	found, err := s.store.FindBySubject(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(consent.ID, found.ID)
	s.True(found.Has(models.GrantDataProcessing))
	s.Equal([]string{"service delivery"}, found.Purposes)
	s.WithinDuration(consent.ConsentDate, found.ConsentDate, time.Millisecond)

	rights, err := s.store.FindRights(ctx, "u1")
	s.Require().NoError(err)
	s.True(rights.Portability)
}

func (s *PostgresStoreSuite) TestCreateConflict() {
	ctx := context.Background()
	consent := s.newConsent("u2")
	s.Require().NoError(s.store.Create(ctx, consent, models.DefaultRights("u2", consent.ConsentDate)))

	err := s.store.Create(ctx, s.newConsent("u2"), models.DefaultRights("u2", consent.ConsentDate))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	consent := s.newConsent("u3")
	s.Require().NoError(s.store.Create(ctx, consent, models.DefaultRights("u3", consent.ConsentDate)))

	consent.Withdraw([]models.Grant{models.GrantDataProcessing}, consent.ConsentDate.Add(time.Minute))
	s.Require().NoError(s.store.Update(ctx, consent))

	found, err := s.store.FindBySubject(ctx, "u3")
	s.Require().NoError(err)
	s.False(found.Has(models.GrantDataProcessing))

	s.Require().NoError(s.store.DeleteBySubject(ctx, "u3"))
	_, err = s.store.FindBySubject(ctx, "u3")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindRights(ctx, "u3")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.DeleteBySubject(ctx, "u3"), sentinel.ErrNotFound)
}

// TestConcurrentCreate verifies the unique subject constraint holds under contention.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	result := testutil.RunConcurrent(20, func(idx int) error {
		c := s.newConsent("contended")
		c.ID = id.ConsentID(fmt.Sprintf("consent_contended_%d", idx))
		return s.store.Create(ctx, c, models.DefaultRights("contended", c.ConsentDate))
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
}
