package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	breachmodels "consentd/internal/breach/models"
	"consentd/internal/platform/middleware"
	id "consentd/pkg/domain"
	"consentd/pkg/platform/httputil"
)

// Activity catalog.

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.engine.ListActivities(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(activities, toActivityResponse))
}

func (h *Handler) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[ActivityRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.engine.AddActivity(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toActivityResponse(a))
}

func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.engine.GetActivity(r.Context(), activityID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toActivityResponse(a))
}

// Processing ledger.

func (h *Handler) handleRecordProcessing(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[ProcessingRecordRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.engine.RecordProcessing(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProcessingRecordResponse(rec))
}

func (h *Handler) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.VerifyLedger(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChainReportResponse{
		Records:  report.Records,
		Valid:    report.Valid,
		BrokenAt: report.BrokenAt,
		Reason:   report.Reason,
	})
}

// Impact assessments.

func (h *Handler) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssessmentRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.engine.CreateAssessment(r.Context(), activityID, req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAssessmentResponse(a))
}

func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListAssessments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(list, toAssessmentResponse))
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.engine.GetAssessment(r.Context(), assessmentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(a))
}

// handleApproveAssessment and handleRejectAssessment record the calling
// officer as the approver.
func (h *Handler) handleApproveAssessment(w http.ResponseWriter, r *http.Request) {
	h.decideAssessment(w, r, true)
}

func (h *Handler) handleRejectAssessment(w http.ResponseWriter, r *http.Request) {
	h.decideAssessment(w, r, false)
}

func (h *Handler) decideAssessment(w http.ResponseWriter, r *http.Request, approve bool) {
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	approver := middleware.PrincipalFrom(r.Context()).Subject
	decide := h.engine.RejectAssessment
	if approve {
		decide = h.engine.ApproveAssessment
	}
	a, err := decide(r.Context(), assessmentID, approver)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(a))
}

// Breach register.

func (h *Handler) handleRecordBreach(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[BreachRequest](w, r, h.logger)
	if !ok {
		return
	}
	b, err := h.engine.RecordBreach(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBreachResponse(b))
}

func (h *Handler) handleListBreaches(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListBreaches(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(list, toBreachResponse))
}

func (h *Handler) handleGetBreach(w http.ResponseWriter, r *http.Request) {
	breachID, err := id.ParseBreachID(chi.URLParam(r, "breachID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.engine.GetBreach(r.Context(), breachID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBreachResponse(b))
}

func (h *Handler) handleAdvanceBreach(w http.ResponseWriter, r *http.Request) {
	breachID, err := id.ParseBreachID(chi.URLParam(r, "breachID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BreachStatusRequest](w, r, h.logger)
	if !ok {
		return
	}
	b, err := h.engine.AdvanceBreachStatus(r.Context(), breachID, breachmodels.Status(req.Status), req.ReportedTo)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBreachResponse(b))
}

// Reporting.

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.GenerateComplianceReport(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
