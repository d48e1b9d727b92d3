// Package httptransport exposes the engine over a JSON HTTP API. Handlers
// only decode, authorize and map; every rule lives in the engine.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assessmentmodels "consentd/internal/assessment/models"
	"consentd/internal/audit"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	"consentd/internal/compliance"
	consentmodels "consentd/internal/consent/models"
	ledgermodels "consentd/internal/ledger/models"
	"consentd/internal/platform/middleware"
	rightsmodels "consentd/internal/rights/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/validation"
)

// Engine is the slice of the governance engine the HTTP layer drives.
type Engine interface {
	RegisterConsent(ctx context.Context, subjectID string, req consentmodels.RegisterRequest) (*consentmodels.Consent, error)
	GetConsent(ctx context.Context, subjectID string) (*consentmodels.Consent, bool, error)
	GetRights(ctx context.Context, subjectID string) (*consentmodels.DataSubjectRights, bool, error)
	HasGrant(ctx context.Context, subjectID string, grant consentmodels.Grant) bool
	WithdrawGrants(ctx context.Context, subjectID string, grants []consentmodels.Grant) (*consentmodels.Consent, error)

	AddActivity(ctx context.Context, activity catalogmodels.Activity) (*catalogmodels.Activity, error)
	GetActivity(ctx context.Context, activityID id.ActivityID) (*catalogmodels.Activity, error)
	ListActivities(ctx context.Context) ([]*catalogmodels.Activity, error)

	ProcessAccessRequest(ctx context.Context, subjectID string) (*rightsmodels.AccessResponse, error)
	ProcessPortabilityRequest(ctx context.Context, subjectID string) (*rightsmodels.PortabilityEnvelope, error)
	ProcessErasureRequest(ctx context.Context, subjectID string) (*rightsmodels.ErasureResponse, error)

	RecordProcessing(ctx context.Context, req ledgermodels.RecordRequest) (*ledgermodels.Record, error)
	ListProcessingRecords(ctx context.Context, subjectID string) ([]*ledgermodels.Record, error)
	VerifyLedger(ctx context.Context) (*ledgermodels.ChainReport, error)

	CreateAssessment(ctx context.Context, activityID id.ActivityID, req assessmentmodels.CreateRequest) (*assessmentmodels.Assessment, error)
	ApproveAssessment(ctx context.Context, assessmentID id.AssessmentID, approver string) (*assessmentmodels.Assessment, error)
	RejectAssessment(ctx context.Context, assessmentID id.AssessmentID, approver string) (*assessmentmodels.Assessment, error)
	GetAssessment(ctx context.Context, assessmentID id.AssessmentID) (*assessmentmodels.Assessment, error)
	ListAssessments(ctx context.Context) ([]*assessmentmodels.Assessment, error)

	RecordBreach(ctx context.Context, req breachmodels.RecordRequest) (*breachmodels.Breach, error)
	AdvanceBreachStatus(ctx context.Context, breachID id.BreachID, to breachmodels.Status, reportedTo string) (*breachmodels.Breach, error)
	GetBreach(ctx context.Context, breachID id.BreachID) (*breachmodels.Breach, error)
	ListBreaches(ctx context.Context) ([]*breachmodels.Breach, error)

	GenerateComplianceReport(ctx context.Context) (*compliance.Report, error)
	AuditTrail(ctx context.Context, subjectID string) ([]audit.Event, error)
}

type Handler struct {
	engine Engine
	logger *slog.Logger
}

func NewHandler(engine Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// subjectParam reads the subject from the path and checks that the caller
// may act on it. It writes the error response itself and reports false.
func (h *Handler) subjectParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	subjectID := chi.URLParam(r, "subjectID")
	if err := validation.ValidateSubjectID(subjectID); err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	p := middleware.PrincipalFrom(r.Context())
	if p == nil || !p.CanActOn(subjectID) {
		h.logger.WarnContext(r.Context(), "subject access denied",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not permitted to act on this subject"))
		return "", false
	}
	return subjectID, true
}

// fail logs unexpected failures before writing the response. Expected
// domain outcomes are not logged here; the engine already audits them.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"route", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	httputil.WriteError(w, err)
}
