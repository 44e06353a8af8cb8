package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"mailbridge/internal/engine/onboarding"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/pkg/validator"
)

type OnboardingHandler struct {
	service *onboarding.Service
}

func NewOnboardingHandler(service *onboarding.Service) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

func (h *OnboardingHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	claims := claimsFrom(r)

	var req onboarding.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.OrganizationID == "" || !tenant.IsAdmin {
		req.OrganizationID = tenant.OrgID
	}
	req.CreatedBy = claims.UserID

	if err := validator.ValidateStruct(req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	link, err := h.service.Create(r.Context(), req)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create onboarding link", nil)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *OnboardingHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	limit, offset := pagination(r)

	filter := onboarding.ListFilter{
		Status:    r.URL.Query().Get("status"),
		CreatedBy: r.URL.Query().Get("created_by"),
		Limit:     limit,
		Offset:    offset,
	}
	if tenant.IsAdmin {
		filter.OrganizationID = r.URL.Query().Get("organization_id")
	} else {
		filter.OrganizationID = tenant.OrgID
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list onboarding links", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *OnboardingHandler) Get(w http.ResponseWriter, r *http.Request) {
	linkID := routeParams(r).ByName("id")

	link, err := h.service.GetByID(r.Context(), linkID)
	if err != nil {
		if stderrors.Is(err, onboarding.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Onboarding link not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load onboarding link", nil)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *OnboardingHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	linkID := routeParams(r).ByName("id")

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	if err := h.service.Revoke(r.Context(), linkID, claims.UserID, req.Reason); err != nil {
		if stderrors.Is(err, onboarding.ErrInvalidState) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Link cannot be revoked from its current state", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke onboarding link", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": linkID, "status": "revoked"})
}

func (h *OnboardingHandler) Extend(w http.ResponseWriter, r *http.Request) {
	linkID := routeParams(r).ByName("id")

	var req struct {
		AdditionalDays int `json:"additional_days"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	if err := h.service.Extend(r.Context(), linkID, req.AdditionalDays); err != nil {
		if stderrors.Is(err, onboarding.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Onboarding link not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to extend onboarding link", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": linkID, "status": "extended"})
}

// Access is the public entry point behind the shareable URL. Active links get
// their access tracked; expired and revoked links still render so the client
// can show the right message.
func (h *OnboardingHandler) Access(w http.ResponseWriter, r *http.Request) {
	token := routeParams(r).ByName("token")

	link, err := h.service.GetByToken(r.Context(), token)
	if err != nil {
		if stderrors.Is(err, onboarding.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Onboarding link not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load onboarding link", nil)
		return
	}

	if link.Status == "active" {
		if err := h.service.TrackAccess(r.Context(), token); err != nil {
			log.Error().Err(err).Str("token", token).Msg("failed to track link access")
		}
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *OnboardingHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	token := routeParams(r).ByName("token")

	var req struct {
		CurrentStep        int `json:"current_step"`
		ProgressPercentage int `json:"progress_percentage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.CurrentStep < 0 || req.ProgressPercentage < 0 || req.ProgressPercentage > 100 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "progress values out of range", nil)
		return
	}

	if err := h.service.UpdateProgress(r.Context(), token, req.CurrentStep, req.ProgressPercentage); err != nil {
		if stderrors.Is(err, onboarding.ErrInvalidState) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Link is not active", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update progress", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_step":        req.CurrentStep,
		"progress_percentage": req.ProgressPercentage,
	})
}

func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	token := routeParams(r).ByName("token")

	if err := h.service.Complete(r.Context(), token); err != nil {
		if stderrors.Is(err, onboarding.ErrInvalidState) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Link is not active", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to complete onboarding", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "used"})
}
