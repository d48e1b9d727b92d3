package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	catalogmodels "consentd/internal/catalog/models"
	catalogservice "consentd/internal/catalog/service"
	catalogstore "consentd/internal/catalog/store"
	consentmodels "consentd/internal/consent/models"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/ledger/models"
	"consentd/internal/ledger/store"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/testutil"
)

type LedgerSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	consents *consentservice.Service
	service  *Service
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	ctx := context.Background()
	catalog := catalogservice.NewService(catalogstore.New(), nil)
	s.Require().NoError(catalog.SeedDefaults(ctx))
	s.consents = consentservice.NewService(consentstore.New(), id.NewUUIDGenerator(), nil)
	s.store = store.New()
	s.service = NewService(s.store, catalog, s.consents, id.NewUUIDGenerator(), nil)
}

func (s *LedgerSuite) TestRecord_UnknownActivityLeavesLedgerUnchanged() {
	ctx := context.Background()
	before, err := s.service.Count(ctx)
	s.Require().NoError(err)

	_, err = s.service.Record(ctx, models.RecordRequest{
		SubjectID:  "u1",
		ActivityID: "crypto_mining",
		DataType:   "usage",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownActivity))

	after, err := s.service.Count(ctx)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *LedgerSuite) TestRecord_Validation() {
	ctx := context.Background()
	cases := map[string]models.RecordRequest{
		"empty subject":      {ActivityID: "analytics", DataType: "usage"},
		"empty activity":     {SubjectID: "u1", DataType: "usage"},
		"empty data type":    {SubjectID: "u1", ActivityID: "analytics"},
		"negative retention": {SubjectID: "u1", ActivityID: "analytics", DataType: "usage", RetentionDays: -1},
	}
	for name, req := range cases {
		s.Run(name, func() {
			_, err := s.service.Record(ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument), "got %v", err)
		})
	}
}

func (s *LedgerSuite) TestRecord_WithoutConsentIsLogged() {
	rec, err := s.service.Record(context.Background(), models.RecordRequest{
		SubjectID:  "u1",
		ActivityID: "user_registration",
		DataType:   "email",
	})
	s.Require().NoError(err)
	s.Empty(rec.ConsentID)
	s.Equal("contract", rec.LegalBasis, "legal basis falls back to the catalog entry")
	s.Equal(1095, rec.RetentionDays)
	s.NotEmpty(rec.Categories)
	s.Equal(int64(1), rec.Sequence)
}

func (s *LedgerSuite) TestRecord_AttachesCurrentConsent() {
	ctx := context.Background()
	consent, err := s.consents.Register(ctx, "u1", consentmodels.RegisterRequest{
		Grants: consentmodels.Grants{consentmodels.GrantAnalytics: true},
	})
	s.Require().NoError(err)

	rec, err := s.service.Record(ctx, models.RecordRequest{
		SubjectID:  "u1",
		ActivityID: "analytics",
		DataType:   "screen_views",
		Purpose:    "feature usage",
		Profiling:  true,
	})
	s.Require().NoError(err)
	s.Equal(consent.ID, rec.ConsentID)
	s.Equal("feature usage", rec.Purpose)
	s.True(rec.Profiling)
	s.Equal(rec.Timestamp, rec.Timestamp.Truncate(time.Microsecond))

	list, err := s.service.ListBySubject(ctx, "u1")
	s.Require().NoError(err)
	s.Len(list, 1)
}

// TestConcurrentAppends_ChainStaysValid appends from many goroutines and
// verifies sequences are contiguous and every hash link holds.
func (s *LedgerSuite) TestConcurrentAppends_ChainStaysValid() {
	ctx := context.Background()
	result := testutil.RunConcurrent(50, func(idx int) error {
		_, err := s.service.Record(ctx, models.RecordRequest{
			SubjectID:  fmt.Sprintf("subject-%d", idx%5),
			ActivityID: "analytics",
			DataType:   "usage",
		})
		return err
	})
	s.Equal(int32(50), result.Successes)

	report, err := s.service.VerifyChain(ctx)
	s.Require().NoError(err)
	s.True(report.Valid, report.Reason)
	s.Equal(50, report.Records)

	perSubject, err := s.service.ListBySubject(ctx, "subject-0")
	s.Require().NoError(err)
	s.Len(perSubject, 10)
}

func (s *LedgerSuite) TestVerifyChain_DetectsTampering() {
	ctx := context.Background()
	for range 3 {
		_, err := s.service.Record(ctx, models.RecordRequest{SubjectID: "u1", ActivityID: "analytics", DataType: "usage"})
		s.Require().NoError(err)
	}

	tampered := NewService(&tamperingStore{Store: s.store, sequence: 2}, stubActivities{}, stubConsents{}, nil, nil)
	report, err := tampered.VerifyChain(ctx)
	s.Require().NoError(err)
	s.False(report.Valid)
	s.Equal(int64(2), report.BrokenAt)
	s.Equal("record hash mismatch", report.Reason)
}

// tamperingStore rewrites one record's purpose on read.
type tamperingStore struct {
	Store
	sequence int64
}

func (t *tamperingStore) List(ctx context.Context) ([]*models.Record, error) {
	records, err := t.Store.List(ctx)
	for _, r := range records {
		if r.Sequence == t.sequence {
			r.Purpose = "rewritten"
		}
	}
	return records, err
}

type stubActivities struct{}

func (stubActivities) Get(context.Context, id.ActivityID) (*catalogmodels.Activity, error) {
	return nil, dErrors.New(dErrors.CodeUnknownActivity, "stub")
}

type stubConsents struct{}

func (stubConsents) Get(context.Context, string) (*consentmodels.Consent, bool, error) {
	return nil, false, nil
}
