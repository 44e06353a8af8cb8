package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"mailbridge/internal/engine/campaigns"
	"mailbridge/internal/pkg/errors"
)

type CampaignHandler struct {
	service *campaigns.Service
}

func NewCampaignHandler(service *campaigns.Service) *CampaignHandler {
	return &CampaignHandler{service: service}
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	limit, offset := pagination(r)

	if tenant.IsAdmin && r.URL.Query().Get("all") == "true" {
		list, err := h.service.ListAllAdmin(r.Context(), limit, offset)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list campaigns", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": list, "limit": limit, "offset": offset})
		return
	}

	list, err := h.service.ListForOrg(r.Context(), tenant.OrgID, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list campaigns", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": list, "limit": limit, "offset": offset})
}

func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	campaignID := routeParams(r).ByName("id")

	stats, err := h.service.Stats(r.Context(), tenant.OrgID, campaignID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load campaign stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CampaignHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	campaignID := routeParams(r).ByName("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "status is required", nil)
		return
	}

	var err error
	if tenant.IsAdmin {
		err = h.service.UpdateStatus(r.Context(), campaignID, req.Status)
	} else {
		err = h.service.UpdateStatusForOrg(r.Context(), tenant.OrgID, campaignID, req.Status)
	}
	if err != nil {
		if stderrors.Is(err, campaigns.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update campaign status", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": campaignID, "status": req.Status})
}

func (h *CampaignHandler) AssignEmailAccount(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	campaignID := routeParams(r).ByName("id")

	var req struct {
		EmailAccountID string `json:"email_account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EmailAccountID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "email_account_id is required", nil)
		return
	}

	if err := h.service.AssignEmailAccount(r.Context(), tenant.OrgID, campaignID, req.EmailAccountID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to assign email account", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": campaignID, "email_account_id": req.EmailAccountID})
}
