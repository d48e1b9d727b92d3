package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	consentmodels "consentd/internal/consent/models"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
)

func (h *Handler) handleRegisterConsent(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterConsentRequest](w, r, h.logger)
	if !ok {
		return
	}
	c, err := h.engine.RegisterConsent(r.Context(), subjectID, req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(c))
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	c, found, err := h.engine.GetConsent(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConsentNotFound, "no consent recorded for subject"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(c))
}

func (h *Handler) handleCheckGrant(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	grant := consentmodels.Grant(chi.URLParam(r, "grant"))
	if !grant.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "unknown grant: "+string(grant)))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, GrantCheckResponse{
		SubjectID: subjectID,
		Grant:     string(grant),
		Granted:   h.engine.HasGrant(r.Context(), subjectID, grant),
	})
}

func (h *Handler) handleWithdrawGrants(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WithdrawRequest](w, r, h.logger)
	if !ok {
		return
	}
	c, err := h.engine.WithdrawGrants(r.Context(), subjectID, req.toModel())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(c))
}

func (h *Handler) handleGetRights(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	rights, found, err := h.engine.GetRights(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConsentNotFound, "no consent recorded for subject"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRightsResponse(rights))
}

func (h *Handler) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	resp, err := h.engine.ProcessAccessRequest(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccessResponse(resp))
}

// handlePortabilityRequest streams the envelope as a downloadable document.
func (h *Handler) handlePortabilityRequest(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	envelope, err := h.engine.ProcessPortabilityRequest(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := envelope.Encode()
	if err != nil {
		h.fail(w, r, dErrors.Wrap(err, dErrors.CodeInternal, "encode portability envelope"))
		return
	}
	w.Header().Set("Content-Type", envelope.Format)
	w.Header().Set("Content-Disposition", `attachment; filename="`+envelope.RequestID.String()+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleErasureRequest(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	resp, err := h.engine.ProcessErasureRequest(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toErasureResponse(resp))
}

func (h *Handler) handleListSubjectRecords(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	records, err := h.engine.ListProcessingRecords(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(records, toProcessingRecordResponse))
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := h.subjectParam(w, r)
	if !ok {
		return
	}
	events, err := h.engine.AuditTrail(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(events, toAuditEventResponse))
}
