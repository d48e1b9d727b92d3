package service

//go:generate mockgen -source=../ports/gateway.go -destination=mocks/mocks.go -package=mocks DataGateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentd/internal/audit"
	consentmodels "consentd/internal/consent/models"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/rights/models"
	"consentd/internal/rights/ports"
	"consentd/internal/rights/service/mocks"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

type RightsSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	gateway    *mocks.MockDataGateway
	consents   *consentservice.Service
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestRightsSuite(t *testing.T) {
	suite.Run(t, new(RightsSuite))
}

func (s *RightsSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockDataGateway(s.ctrl)
	s.consents = consentservice.NewService(consentstore.New(), id.NewUUIDGenerator(), nil)
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(s.consents, s.gateway, id.NewUUIDGenerator(), nil,
		WithAuditor(audit.NewPublisher(s.auditStore)),
	)
}

func (s *RightsSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RightsSuite) register(subjectID string, grants consentmodels.Grants) *consentmodels.Consent {
	c, err := s.consents.Register(context.Background(), subjectID, consentmodels.RegisterRequest{
		Grants:      grants,
		ContactInfo: "dpo@example.com",
	})
	s.Require().NoError(err)
	return c
}

func bundle(subjectID string) *ports.DataBundle {
	return &ports.DataBundle{
		SubjectID:   subjectID,
		CollectedAt: time.Now(),
		Sections: map[string]any{
			"profile": map[string]any{"name": "Ada"},
			"health":  []any{map[string]any{"steps": 9000}},
		},
	}
}

// TestAccessThenPortability_GrantScenario registers dataProcessing but not
// dataPortability: access succeeds, portability is refused.
func (s *RightsSuite) TestAccessThenPortability_GrantScenario() {
	ctx := context.Background()
	s.register("u1", consentmodels.Grants{
		consentmodels.GrantDataProcessing:  true,
		consentmodels.GrantDataPortability: false,
	})
	s.gateway.EXPECT().Gather(gomock.Any(), "u1").Return(bundle("u1"), nil).Times(1)

	resp, err := s.service.Access(ctx, "u1")
	s.Require().NoError(err)
	s.NotEmpty(resp.RequestID)
	s.Equal("u1", resp.SubjectID)
	s.Equal([]string{"health", "profile"}, resp.Data.SubsystemNames())
	s.True(resp.Consent.Has(consentmodels.GrantDataProcessing))
	s.Require().NotNil(resp.Rights)
	s.True(resp.Rights.Access)
	s.Equal("dpo@example.com", resp.ContactInfo)

	_, err = s.service.Portability(ctx, "u1")
	s.True(dErrors.HasCode(err, dErrors.CodeConsentRequired))

	events, _ := s.auditStore.ListBySubject(ctx, "u1")
	var decisions []string
	for _, e := range events {
		if e.Action == audit.ActionAccessRequest || e.Action == audit.ActionPortabilityRequest {
			decisions = append(decisions, e.Decision)
		}
	}
	s.Equal([]string{audit.DecisionCompleted, audit.DecisionDenied}, decisions)
}

func (s *RightsSuite) TestAccess_NoConsentRequiresConsent() {
	_, err := s.service.Access(context.Background(), "stranger")
	s.True(dErrors.HasCode(err, dErrors.CodeConsentRequired))
}

func (s *RightsSuite) TestAccess_EmptySubject() {
	_, err := s.service.Access(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *RightsSuite) TestAccess_GatewayTimeoutIsTyped() {
	s.register("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.gateway.EXPECT().Gather(gomock.Any(), "u1").Return(nil, fmt.Errorf("profile service: %w", context.DeadlineExceeded))

	_, err := s.service.Access(context.Background(), "u1")
	s.True(dErrors.HasCode(err, dErrors.CodeGatewayFailure))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Contains(err.Error(), "u1")
	s.Contains(err.Error(), "gather")
}

func (s *RightsSuite) TestPortability_Envelope() {
	s.register("u2", consentmodels.Grants{consentmodels.GrantDataPortability: true})
	s.gateway.EXPECT().Gather(gomock.Any(), "u2").Return(bundle("u2"), nil)

	env, err := s.service.Portability(context.Background(), "u2")
	s.Require().NoError(err)
	s.Equal(models.PortabilityFormat, env.Format)
	s.Equal(models.PortabilityVersion, env.Version)
	s.Equal(models.PortabilitySchema, env.Schema.Name)
	s.NotEmpty(env.Schema.Fields)
	s.True(env.Consent.Grants[string(consentmodels.GrantDataPortability)])

	raw, err := env.Encode()
	s.Require().NoError(err)
	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	for _, field := range env.Schema.Fields {
		if field.Name == "consent.grants" {
			continue
		}
		s.Contains(decoded, field.Name, "schema names a field the envelope lacks")
	}
}

func (s *RightsSuite) TestErase_RequiresGrant() {
	s.register("u3", consentmodels.Grants{consentmodels.GrantDataProcessing: true})

	_, err := s.service.Erase(context.Background(), "u3")
	s.True(dErrors.HasCode(err, dErrors.CodeConsentRequired))
}

func (s *RightsSuite) TestErase_NoConsent() {
	_, err := s.service.Erase(context.Background(), "stranger")
	s.True(dErrors.HasCode(err, dErrors.CodeConsentNotFound))
}

// TestErase_PartialFailureKeepsConsent checks the all-or-nothing rule when
// one subsystem fails to delete.
func (s *RightsSuite) TestErase_PartialFailureKeepsConsent() {
	ctx := context.Background()
	before := s.register("u4", consentmodels.Grants{consentmodels.GrantRightToErasure: true})
	s.gateway.EXPECT().Delete(gomock.Any(), "u4").Return(&ports.DeleteReport{Results: []ports.SubsystemResult{
		{Subsystem: "profile", Deleted: true, Records: 1},
		{Subsystem: "health", Deleted: false, Error: "timeout"},
	}}, nil)

	_, err := s.service.Erase(ctx, "u4")
	s.True(dErrors.HasCode(err, dErrors.CodeGatewayFailure))
	s.Contains(err.Error(), "health")

	after, found, err := s.consents.Get(ctx, "u4")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(before, after)
}

func (s *RightsSuite) TestErase_GatewayErrorKeepsConsent() {
	ctx := context.Background()
	s.register("u5", consentmodels.Grants{consentmodels.GrantRightToErasure: true})
	boom := errors.New("connection reset")
	s.gateway.EXPECT().Delete(gomock.Any(), "u5").Return(nil, boom)

	_, err := s.service.Erase(ctx, "u5")
	s.True(dErrors.HasCode(err, dErrors.CodeGatewayFailure))
	s.ErrorIs(err, boom)
	s.True(s.consents.HasGrant(ctx, "u5", consentmodels.GrantRightToErasure))
}

func (s *RightsSuite) TestErase_SecondCallFindsNothing() {
	ctx := context.Background()
	consent := s.register("u6", consentmodels.Grants{consentmodels.GrantRightToErasure: true})
	s.gateway.EXPECT().Delete(gomock.Any(), "u6").Return(&ports.DeleteReport{Results: []ports.SubsystemResult{
		{Subsystem: "profile", Deleted: true, Records: 3},
	}}, nil).Times(1)

	resp, err := s.service.Erase(ctx, "u6")
	s.Require().NoError(err)
	s.Equal(consent.ID, resp.ConsentID)
	s.Len(resp.Subsystems, 1)

	_, found, _ := s.consents.Get(ctx, "u6")
	s.False(found)
	_, found, _ = s.consents.Rights(ctx, "u6")
	s.False(found)

	_, err = s.service.Erase(ctx, "u6")
	s.True(dErrors.HasCode(err, dErrors.CodeConsentNotFound))
}

// TestErase_WaitsForInFlightAccess holds an access request inside the
// gateway and checks the erasure's delete only starts after it returns.
func (s *RightsSuite) TestErase_WaitsForInFlightAccess() {
	ctx := context.Background()
	s.register("u7", consentmodels.Grants{
		consentmodels.GrantDataProcessing: true,
		consentmodels.GrantRightToErasure: true,
	})

	gathering := make(chan struct{})
	release := make(chan struct{})
	var gatherDone, deleteStarted atomic.Bool
	s.gateway.EXPECT().Gather(gomock.Any(), "u7").DoAndReturn(func(context.Context, string) (*ports.DataBundle, error) {
		close(gathering)
		<-release
		gatherDone.Store(true)
		return bundle("u7"), nil
	})
	s.gateway.EXPECT().Delete(gomock.Any(), "u7").DoAndReturn(func(context.Context, string) (*ports.DeleteReport, error) {
		deleteStarted.Store(true)
		s.True(gatherDone.Load(), "delete ran while access was reading")
		return &ports.DeleteReport{Results: []ports.SubsystemResult{{Subsystem: "profile", Deleted: true}}}, nil
	})

	accessErr := make(chan error, 1)
	go func() {
		resp, err := s.service.Access(ctx, "u7")
		if err == nil && resp.Consent == nil {
			err = errors.New("access saw no consent")
		}
		accessErr <- err
	}()
	<-gathering

	eraseErr := make(chan error, 1)
	go func() {
		_, err := s.service.Erase(ctx, "u7")
		eraseErr <- err
	}()

	time.Sleep(30 * time.Millisecond)
	s.False(deleteStarted.Load())
	close(release)

	s.NoError(<-accessErr)
	s.NoError(<-eraseErr)
	s.True(deleteStarted.Load())
}
