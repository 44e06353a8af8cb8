package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/pkg/errors"
)

type AccountHandler struct {
	service *accounts.Service
}

func NewAccountHandler(service *accounts.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	limit, offset := pagination(r)

	if tenant.IsAdmin && r.URL.Query().Get("all") == "true" {
		list, err := h.service.ListAllAdmin(r.Context(), limit, offset)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list email accounts", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": list, "limit": limit, "offset": offset})
		return
	}

	list, err := h.service.ListForOrg(r.Context(), tenant.OrgID, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list email accounts", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": list, "limit": limit, "offset": offset})
}

func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	accountID := routeParams(r).ByName("id")

	stats, err := h.service.Stats(r.Context(), tenant.OrgID, accountID)
	if err != nil {
		if stderrors.Is(err, accounts.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Email account not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load account stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	accountID := routeParams(r).ByName("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "status is required", nil)
		return
	}

	err := h.service.UpdateStatus(r.Context(), tenant.OrgID, accountID, req.Status)
	if err != nil {
		switch {
		case stderrors.Is(err, accounts.ErrNotFound):
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Email account not found", nil)
		case stderrors.Is(err, accounts.ErrInvalidTransition):
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, err.Error(), nil)
		default:
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update account status", nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": accountID, "status": req.Status})
}
