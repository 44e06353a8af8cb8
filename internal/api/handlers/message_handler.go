package handlers

import (
	"net/http"

	"mailbridge/internal/engine/messages"
	"mailbridge/internal/pkg/errors"
)

type MessageHandler struct {
	service *messages.Service
}

func NewMessageHandler(service *messages.Service) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) ListForCampaign(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	campaignID := routeParams(r).ByName("id")
	limit, offset := pagination(r)

	list, err := h.service.ListForCampaign(r.Context(), tenant.OrgID, campaignID, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list messages", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": list, "limit": limit, "offset": offset})
}

// ListForContact returns the contact's thread in chronological order.
func (h *MessageHandler) ListForContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	contactID := routeParams(r).ByName("id")
	limit, _ := pagination(r)

	list, err := h.service.ListForContact(r.Context(), tenant.OrgID, contactID, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list messages", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": list, "limit": limit})
}

func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	term := r.URL.Query().Get("q")
	if term == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "q is required", nil)
		return
	}
	limit, _ := pagination(r)

	list, err := h.service.Search(r.Context(), tenant.OrgID, term, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Search failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": list, "query": term, "limit": limit})
}

func (h *MessageHandler) OrgStats(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	stats, err := h.service.OrgStats(r.Context(), tenant.OrgID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load message stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
