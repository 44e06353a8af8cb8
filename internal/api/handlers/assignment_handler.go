package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"mailbridge/internal/engine/assignments"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/pkg/validator"
)

type AssignmentHandler struct {
	service *assignments.Service
}

func NewAssignmentHandler(service *assignments.Service) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// AssignCampaigns applies a bulk campaign assignment; per-item failures come
// back in the body with a 200, matching the bulk semantics of the service.
func (h *AssignmentHandler) AssignCampaigns(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	claims := claimsFrom(r)

	var req assignments.CampaignAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.OrganizationID == "" || !tenant.IsAdmin {
		req.OrganizationID = tenant.OrgID
	}
	req.AssignedBy = claims.UserID

	if err := validator.ValidateStruct(req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	result, err := h.service.AssignUserToCampaigns(r.Context(), req)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Assignment failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AssignmentHandler) AssignContacts(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	claims := claimsFrom(r)

	var req assignments.ContactAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.OrganizationID == "" || !tenant.IsAdmin {
		req.OrganizationID = tenant.OrgID
	}
	req.AssignedBy = claims.UserID

	if err := validator.ValidateStruct(req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	result, err := h.service.AssignContactsToUser(r.Context(), req)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Assignment failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AssignmentHandler) UserAssignments(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	userID := routeParams(r).ByName("id")

	result, err := h.service.GetUserAssignments(r.Context(), tenant.OrgID, userID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load assignments", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AssignmentHandler) OrgUsers(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	users, err := h.service.OrgUsersWithCounts(r.Context(), tenant.OrgID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load users", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AssignmentHandler) AutoAssignContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	claims := claimsFrom(r)
	contactID := routeParams(r).ByName("id")

	userID, err := h.service.AutoAssignRoundRobin(r.Context(), tenant.OrgID, contactID, claims.UserID)
	if err != nil {
		if stderrors.Is(err, assignments.ErrNoAssignableUsers) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "No active users available for assignment", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Auto-assignment failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"contact_id": contactID, "user_id": userID})
}

func (h *AssignmentHandler) RemoveCampaignAssignment(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	params := routeParams(r)

	removed, err := h.service.RemoveCampaignAssignment(r.Context(), tenant.OrgID, params.ByName("user_id"), params.ByName("campaign_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to remove assignment", nil)
		return
	}
	if !removed {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Assignment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *AssignmentHandler) RemoveContactAssignment(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	params := routeParams(r)

	removed, err := h.service.RemoveContactAssignment(r.Context(), tenant.OrgID, params.ByName("user_id"), params.ByName("contact_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to remove assignment", nil)
		return
	}
	if !removed {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Assignment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
