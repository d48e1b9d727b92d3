package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"consentd/internal/catalog/models"
	"consentd/internal/catalog/store"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

type CatalogSuite struct {
	suite.Suite
	service *Service
	now     time.Time
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.now = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.service = NewService(store.New(), nil, WithClock(func() time.Time { return s.now }))
}

func validActivity(activityID string) models.Activity {
	return models.Activity{
		ID:             id.ActivityID(activityID),
		Name:           "Support tickets",
		LegalBasis:     "contract",
		DataCategories: []string{"contact"},
		RetentionDays:  90,
	}
}

func (s *CatalogSuite) TestAdd_Validation() {
	ctx := context.Background()
	cases := map[string]func(a *models.Activity){
		"zero retention":     func(a *models.Activity) { a.RetentionDays = 0 },
		"negative retention": func(a *models.Activity) { a.RetentionDays = -5 },
		"no categories":      func(a *models.Activity) { a.DataCategories = nil },
		"blank legal basis":  func(a *models.Activity) { a.LegalBasis = "  " },
		"missing id":         func(a *models.Activity) { a.ID = "" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			a := validActivity("support")
			mutate(&a)
			_, err := s.service.Add(ctx, a)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidActivity), "got %v", err)
			s.True(dErrors.IsInvalidArgument(err))
		})
	}

	n, err := s.service.Count(ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *CatalogSuite) TestAdd_StampsAndRejectsDuplicates() {
	ctx := context.Background()
	a, err := s.service.Add(ctx, validActivity("support"))
	s.Require().NoError(err)
	s.Equal(s.now, a.CreatedAt)
	s.Equal(s.now, a.UpdatedAt)

	_, err = s.service.Add(ctx, validActivity("support"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidActivity))
}

func (s *CatalogSuite) TestGet() {
	ctx := context.Background()
	_, err := s.service.Get(ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownActivity))

	_, err = s.service.Add(ctx, validActivity("support"))
	s.Require().NoError(err)
	got, err := s.service.Get(ctx, "support")
	s.Require().NoError(err)
	s.Equal("Support tickets", got.Name)

	got.DataCategories[0] = "mutated"
	again, _ := s.service.Get(ctx, "support")
	s.Equal("contact", again.DataCategories[0], "store must not share slices with callers")
}

func (s *CatalogSuite) TestSeedDefaults_Idempotent() {
	ctx := context.Background()
	s.Require().NoError(s.service.SeedDefaults(ctx))
	s.Require().NoError(s.service.SeedDefaults(ctx))

	n, err := s.service.Count(ctx)
	s.Require().NoError(err)
	s.Equal(len(models.DefaultActivities()), n)
	s.GreaterOrEqual(n, 3)

	for _, want := range []id.ActivityID{"user_registration", "health_data_processing", "analytics"} {
		ok, err := s.service.Exists(ctx, want)
		s.Require().NoError(err)
		s.True(ok, want)
	}
}

func TestDefaultActivitiesAreValid(t *testing.T) {
	for _, a := range models.DefaultActivities() {
		assert.NoError(t, a.Validate(), a.ID)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("CATALOG_RECIPIENT", "crm_vendor")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
activities:
  - id: crm_sync
    name: CRM synchronisation
    purpose: Keep customer records current
    legal_basis: legitimate_interests
    data_categories: [contact]
    recipients: ["${CATALOG_RECIPIENT}"]
    retention_days: 400
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	svc := NewService(store.New(), nil)
	require.NoError(t, svc.LoadFile(context.Background(), path))

	got, err := svc.Get(context.Background(), "crm_sync")
	require.NoError(t, err)
	assert.Equal(t, []string{"crm_vendor"}, got.Recipients)
	assert.Equal(t, 400, got.RetentionDays)
}

func TestLoadFile_InvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
activities:
  - id: broken
    legal_basis: consent
    data_categories: [usage]
    retention_days: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	svc := NewService(store.New(), nil)
	err := svc.LoadFile(context.Background(), path)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidActivity))
}
