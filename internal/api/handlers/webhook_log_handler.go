package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"mailbridge/internal/engine/webhooklogs"
	"mailbridge/internal/pkg/errors"
)

type WebhookLogHandler struct {
	service *webhooklogs.Service
}

func NewWebhookLogHandler(service *webhooklogs.Service) *WebhookLogHandler {
	return &WebhookLogHandler{service: service}
}

func (h *WebhookLogHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	limit, offset := pagination(r)
	query := r.URL.Query()

	filter := webhooklogs.ListFilter{
		OrganizationID: tenant.OrgID,
		AdminScope:     tenant.IsAdmin,
		EventType:      query.Get("event_type"),
		CampaignID:     query.Get("campaign_id"),
		Status:         query.Get("status"),
		Search:         query.Get("search"),
		Limit:          limit,
		Offset:         offset,
	}
	if v := query.Get("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "date_from must be RFC 3339", nil)
			return
		}
		filter.DateFrom = &t
	}
	if v := query.Get("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "date_to must be RFC 3339", nil)
			return
		}
		filter.DateTo = &t
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhook logs", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *WebhookLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	logID := routeParams(r).ByName("id")

	entry, err := h.service.GetByID(r.Context(), logID)
	if err != nil {
		if stderrors.Is(err, webhooklogs.ErrNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook log not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook log", nil)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *WebhookLogHandler) Retry(w http.ResponseWriter, r *http.Request) {
	logID := routeParams(r).ByName("id")

	if err := h.service.Retry(r.Context(), logID); err != nil {
		if stderrors.Is(err, webhooklogs.ErrNotRetryable) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Only failed webhook logs can be retried", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to retry webhook log", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": logID, "status": "retrying"})
}

func (h *WebhookLogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook log stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *WebhookLogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)

	logs, err := h.service.RecentActivity(r.Context(), limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load recent activity", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs, "limit": limit})
}

func (h *WebhookLogHandler) Purge(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Purge(r.Context())
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Purge failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": count})
}
