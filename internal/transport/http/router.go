package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "consentd/internal/jwt_token"
	"consentd/internal/platform/health"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/middleware"
	"consentd/pkg/validation"
)

type RouterConfig struct {
	Tokens middleware.TokenValidator
	// APIKeys may be nil; X-API-Key is then ignored.
	APIKeys middleware.APIKeyValidator
	// Metrics may be nil; /metrics is then not mounted.
	Metrics *metrics.Metrics
	// Health may be nil.
	Health         *health.Handler
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter wires the public probes and the authenticated /v1 API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.BodyLimit(validation.MaxBodySize))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Tokens, cfg.APIKeys, cfg.Metrics, logger))

		r.Route("/subjects/{subjectID}", func(r chi.Router) {
			r.Put("/consent", h.handleRegisterConsent)
			r.Get("/consent", h.handleGetConsent)
			r.Get("/consent/grants/{grant}", h.handleCheckGrant)
			r.Post("/consent/withdraw", h.handleWithdrawGrants)
			r.Get("/rights", h.handleGetRights)
			r.Post("/access", h.handleAccessRequest)
			r.Post("/export", h.handlePortabilityRequest)
			r.Post("/erase", h.handleErasureRequest)
			r.Get("/records", h.handleListSubjectRecords)
			r.Get("/audit", h.handleAuditTrail)
		})

		r.With(middleware.RequireRole(jwttoken.RoleDPO, jwttoken.RoleService)).
			Post("/records", h.handleRecordProcessing)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(jwttoken.RoleDPO))

			r.Get("/activities", h.handleListActivities)
			r.Post("/activities", h.handleAddActivity)
			r.Get("/activities/{activityID}", h.handleGetActivity)
			r.Post("/activities/{activityID}/assessments", h.handleCreateAssessment)

			r.Get("/assessments", h.handleListAssessments)
			r.Get("/assessments/{assessmentID}", h.handleGetAssessment)
			r.Post("/assessments/{assessmentID}/approve", h.handleApproveAssessment)
			r.Post("/assessments/{assessmentID}/reject", h.handleRejectAssessment)

			r.Get("/ledger/verify", h.handleVerifyLedger)

			r.Get("/breaches", h.handleListBreaches)
			r.Post("/breaches", h.handleRecordBreach)
			r.Get("/breaches/{breachID}", h.handleGetBreach)
			r.Post("/breaches/{breachID}/status", h.handleAdvanceBreach)

			r.Get("/compliance/report", h.handleComplianceReport)
		})
	})

	return r
}
