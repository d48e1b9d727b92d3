package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentd/internal/audit"
	"consentd/internal/consent/models"
	"consentd/internal/consent/service/mocks"
	"consentd/internal/consent/store"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// ServiceSuite exercises the registry against the in-memory store. Store
// failure paths use the generated mock in ServiceErrorSuite below.
type ServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	clock      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.New()
	s.auditStore = audit.NewInMemoryStore()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = NewService(
		s.store,
		id.NewUUIDGenerator(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAuditor(audit.NewPublisher(s.auditStore)),
		WithClock(func() time.Time { return s.clock }),
	)
}

func (s *ServiceSuite) register(subjectID string, grants models.Grants) *models.Consent {
	c, err := s.service.Register(context.Background(), subjectID, models.RegisterRequest{Grants: grants})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) TestRegister_Validation() {
	ctx := context.Background()

	s.Run("empty subject", func() {
		_, err := s.service.Register(ctx, "", models.RegisterRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("unknown grant name", func() {
		_, err := s.service.Register(ctx, "u1", models.RegisterRequest{
			Grants: models.Grants{"telepathy": true},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("negative retention", func() {
		_, err := s.service.Register(ctx, "u1", models.RegisterRequest{RetentionDays: -1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("rejected requests leave no record", func() {
		_, found, err := s.service.Get(ctx, "u1")
		s.NoError(err)
		s.False(found)
	})
}

func (s *ServiceSuite) TestRegister_CreatesConsentWithDefaults() {
	c := s.register("u1", models.Grants{models.GrantDataProcessing: true})

	s.NotEmpty(c.ID)
	s.Equal(models.SchemaVersion, c.Version)
	s.Equal(models.LegalBasisConsent, c.LegalBasis)
	s.Equal(models.DefaultRetentionDays, c.RetentionDays)
	s.Equal(models.DefaultWithdrawalMethod, c.WithdrawalMethod)
	s.Equal(s.clock, c.ConsentDate)
	s.True(c.Has(models.GrantDataProcessing))
	s.False(c.Has(models.GrantMarketing), "absent grants count as not given")

	rights, found, err := s.service.Rights(context.Background(), "u1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.True(rights.Access)
	s.True(rights.Erasure)
	s.True(rights.Portability)

	events, _ := s.auditStore.ListBySubject(context.Background(), "u1")
	s.Require().Len(events, 1)
	s.Equal(audit.ActionConsentRegistered, events[0].Action)
}

// TestRegister_MergesIntoExisting verifies a second registration keeps the
// consent identity and only overwrites the grants it names.
func (s *ServiceSuite) TestRegister_MergesIntoExisting() {
	first := s.register("u1", models.Grants{
		models.GrantDataProcessing: true,
		models.GrantMarketing:      true,
	})

	s.clock = s.clock.Add(time.Hour)
	second := s.register("u1", models.Grants{models.GrantMarketing: false, models.GrantAnalytics: true})

	s.Equal(first.ID, second.ID)
	s.Equal(first.ConsentDate, second.ConsentDate)
	s.Equal(s.clock, second.LastUpdated)
	s.True(second.Has(models.GrantDataProcessing))
	s.False(second.Has(models.GrantMarketing))
	s.True(second.Has(models.GrantAnalytics))

	all, err := s.service.List(context.Background())
	s.Require().NoError(err)
	s.Len(all, 1)
}

// TestRegister_IdenticalGrantsIdempotent registers the same grants twice and
// checks only LastUpdated moves.
func (s *ServiceSuite) TestRegister_IdenticalGrantsIdempotent() {
	grants := models.Grants{
		models.GrantDataProcessing:  true,
		models.GrantAnalytics:       false,
		models.GrantDataPortability: true,
	}
	first := s.register("u1", grants)

	s.clock = s.clock.Add(2 * time.Hour)
	second := s.register("u1", grants)

	s.Equal(first.Grants, second.Grants)
	s.Equal(first.ID, second.ID)
	s.Equal(first.ConsentDate, second.ConsentDate)
	s.Equal(s.clock, second.LastUpdated)
	s.True(second.LastUpdated.After(first.LastUpdated))

	all, err := s.service.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(first.Grants, all[0].Grants)
}

func (s *ServiceSuite) TestRegister_LastUpdatedNeverBeforeConsentDate() {
	s.register("u1", models.Grants{models.GrantAnalytics: true})

	s.clock = s.clock.Add(-24 * time.Hour)
	c := s.register("u1", models.Grants{models.GrantMarketing: true})

	s.False(c.LastUpdated.Before(c.ConsentDate))
}

func (s *ServiceSuite) TestReturnedConsentIsACopy() {
	c := s.register("u1", models.Grants{models.GrantAnalytics: true})
	c.Grants[models.GrantMarketing] = true

	s.False(s.service.HasGrant(context.Background(), "u1", models.GrantMarketing))
}

func (s *ServiceSuite) TestHasGrant() {
	ctx := context.Background()
	s.register("u1", models.Grants{models.GrantAnalytics: true, models.GrantMarketing: false})

	s.True(s.service.HasGrant(ctx, "u1", models.GrantAnalytics))
	s.False(s.service.HasGrant(ctx, "u1", models.GrantMarketing), "explicit false")
	s.False(s.service.HasGrant(ctx, "u1", models.GrantProfiling), "absent")
	s.False(s.service.HasGrant(ctx, "nobody", models.GrantAnalytics), "unknown subject")
	s.False(s.service.HasGrant(ctx, "u1", "telepathy"), "unknown grant")
	s.False(s.service.HasGrant(ctx, "", models.GrantAnalytics))
}

func (s *ServiceSuite) TestWithdraw() {
	ctx := context.Background()

	s.Run("unknown subject", func() {
		_, err := s.service.Withdraw(ctx, "nobody", []models.Grant{models.GrantMarketing})
		s.True(dErrors.HasCode(err, dErrors.CodeConsentNotFound))
	})

	s.Run("clears named grants and ignores unknown names", func() {
		s.register("u2", models.Grants{models.GrantMarketing: true, models.GrantAnalytics: true})
		s.clock = s.clock.Add(time.Minute)

		c, err := s.service.Withdraw(ctx, "u2", []models.Grant{models.GrantMarketing, "telepathy"})
		s.Require().NoError(err)
		s.False(c.Has(models.GrantMarketing))
		s.True(c.Has(models.GrantAnalytics))
		s.Equal(s.clock, c.LastUpdated)
		s.False(s.service.HasGrant(ctx, "u2", models.GrantMarketing))

		events, _ := s.auditStore.ListBySubject(ctx, "u2")
		s.Require().Len(events, 2)
		s.Equal(audit.ActionGrantsWithdrawn, events[1].Action)
		s.Equal(string(models.GrantMarketing), events[1].Resource)
	})
}

func (s *ServiceSuite) TestErase() {
	ctx := context.Background()
	purged := 0
	purge := func(context.Context) error {
		purged++
		return nil
	}

	s.Run("no consent", func() {
		_, err := s.service.Erase(ctx, "nobody", models.GrantRightToErasure, purge)
		s.True(dErrors.HasCode(err, dErrors.CodeConsentNotFound))
		s.Zero(purged)
	})

	s.Run("grant not given", func() {
		s.register("u3", models.Grants{models.GrantDataProcessing: true})
		_, err := s.service.Erase(ctx, "u3", models.GrantRightToErasure, purge)
		s.True(dErrors.HasCode(err, dErrors.CodeConsentRequired))
		s.Zero(purged)
	})

	s.Run("purge failure leaves consent intact", func() {
		s.register("u4", models.Grants{models.GrantRightToErasure: true})
		boom := errors.New("subsystem down")
		_, err := s.service.Erase(ctx, "u4", models.GrantRightToErasure, func(context.Context) error { return boom })
		s.ErrorIs(err, boom)

		_, found, _ := s.service.Get(ctx, "u4")
		s.True(found)
		_, found, _ = s.service.Rights(ctx, "u4")
		s.True(found)
	})

	s.Run("removes consent and rights", func() {
		erased, err := s.service.Erase(ctx, "u4", models.GrantRightToErasure, purge)
		s.Require().NoError(err)
		s.Equal("u4", erased.SubjectID)
		s.Equal(1, purged)

		_, found, _ := s.service.Get(ctx, "u4")
		s.False(found)
		_, found, _ = s.service.Rights(ctx, "u4")
		s.False(found)
		s.False(s.service.HasGrant(ctx, "u4", models.GrantRightToErasure))
	})

	s.Run("second erasure finds nothing", func() {
		_, err := s.service.Erase(ctx, "u4", models.GrantRightToErasure, purge)
		s.True(dErrors.HasCode(err, dErrors.CodeConsentNotFound))
		s.Equal(1, purged)
	})
}

// TestConcurrentRegister_SingleConsent races registrations for one subject
// and checks that exactly one consent exists with every grant merged in.
func (s *ServiceSuite) TestConcurrentRegister_SingleConsent() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for _, g := range models.AllGrants {
		wg.Go(func() {
			_, err := s.service.Register(ctx, "shared", models.RegisterRequest{Grants: models.Grants{g: true}})
			assert.NoError(s.T(), err)
		})
	}
	wg.Wait()

	all, err := s.service.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	for _, g := range models.AllGrants {
		s.True(all[0].Has(g), g)
	}
}

// TestReadLocked_ExcludesErasure holds the shared lock and checks that an
// erasure for the same subject waits until the read finishes.
func (s *ServiceSuite) TestReadLocked_ExcludesErasure() {
	ctx := context.Background()
	s.register("u5", models.Grants{models.GrantRightToErasure: true})

	erased := make(chan struct{})
	err := s.service.ReadLocked(ctx, "u5", func(ctx context.Context, consent *models.Consent, rights *models.DataSubjectRights) error {
		s.Require().NotNil(consent)
		s.Require().NotNil(rights)
		go func() {
			_, _ = s.service.Erase(ctx, "u5", models.GrantRightToErasure, nil)
			close(erased)
		}()
		select {
		case <-erased:
			s.Fail("erasure completed while a read held the subject lock")
		case <-time.After(30 * time.Millisecond):
		}
		return nil
	})
	s.Require().NoError(err)

	select {
	case <-erased:
	case <-time.After(time.Second):
		s.Fail("erasure did not proceed after the read released the lock")
	}
	_, found, _ := s.service.Get(ctx, "u5")
	s.False(found)
}

func (s *ServiceSuite) TestReadLocked_NoConsent() {
	called := false
	err := s.service.ReadLocked(context.Background(), "nobody", func(_ context.Context, consent *models.Consent, rights *models.DataSubjectRights) error {
		called = true
		s.Nil(consent)
		s.Nil(rights)
		return nil
	})
	s.NoError(err)
	s.True(called)
}

// ServiceErrorSuite asserts store failures are mapped to internal errors.
type ServiceErrorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	service   *Service
}

func TestServiceErrorSuite(t *testing.T) {
	suite.Run(t, new(ServiceErrorSuite))
}

func (s *ServiceErrorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.service = NewService(s.mockStore, id.NewUUIDGenerator(), nil)
}

func (s *ServiceErrorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceErrorSuite) TestRegister_StoreReadFailure() {
	s.mockStore.EXPECT().FindBySubject(gomock.Any(), "u1").Return(nil, errors.New("db down"))

	_, err := s.service.Register(context.Background(), "u1", models.RegisterRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceErrorSuite) TestRegister_CreateConflict() {
	s.mockStore.EXPECT().FindBySubject(gomock.Any(), "u1").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

	_, err := s.service.Register(context.Background(), "u1", models.RegisterRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ServiceErrorSuite) TestGet_StoreFailure() {
	s.mockStore.EXPECT().FindBySubject(gomock.Any(), "u1").Return(nil, errors.New("db down"))

	_, found, err := s.service.Get(context.Background(), "u1")
	s.False(found)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceErrorSuite) TestHasGrant_StoreFailureDenies() {
	s.mockStore.EXPECT().FindBySubject(gomock.Any(), "u1").Return(nil, errors.New("db down"))

	s.False(s.service.HasGrant(context.Background(), "u1", models.GrantAnalytics))
}

func (s *ServiceErrorSuite) TestErase_DeleteFailureAfterPurge() {
	consent, err := models.NewConsent("consent_1", "u1", time.Now())
	require.NoError(s.T(), err)
	consent.Grants[models.GrantRightToErasure] = true

	s.mockStore.EXPECT().FindBySubject(gomock.Any(), "u1").Return(consent, nil)
	s.mockStore.EXPECT().DeleteBySubject(gomock.Any(), "u1").Return(errors.New("db down"))

	_, err = s.service.Erase(context.Background(), "u1", models.GrantRightToErasure, func(context.Context) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
