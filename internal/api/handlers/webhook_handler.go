package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"mailbridge/internal/engine/webhook"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/platform/models"
)

type webhookProcessor interface {
	Process(ctx context.Context, payload *webhook.Payload) (*webhook.Result, error)
}

type webhookAuditor interface {
	Append(ctx context.Context, entry *models.WebhookLog) error
}

type WebhookHandler struct {
	router webhookProcessor
	logs   webhookAuditor
}

func NewWebhookHandler(router webhookProcessor, logs webhookAuditor) *WebhookHandler {
	return &WebhookHandler{router: router, logs: logs}
}

type webhookResponse struct {
	Status string `json:"status"`
	*webhook.Result
}

// HandleInstantly is the unauthenticated ingestion endpoint. Malformed
// payloads get a 400 plus a failed audit row; an unresolvable campaign is a
// 404 so the provider retries after the campaign is imported.
func (h *WebhookHandler) HandleInstantly(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read request body", nil)
		return
	}

	var payload webhook.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.auditRejected(r.Context(), body, err)
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	result, err := h.router.Process(r.Context(), &payload)
	if err != nil {
		if stderrors.Is(err, webhook.ErrCampaignNotFound) {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, err.Error(), nil)
			return
		}
		log.Error().Err(err).Str("event_type", string(payload.EventType)).Msg("webhook processing failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Webhook processing failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Status: "success", Result: result})
}

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "webhooks",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// auditRejected records payloads that never reached the router.
func (h *WebhookHandler) auditRejected(ctx context.Context, body []byte, cause error) {
	if h.logs == nil {
		return
	}
	entry := &models.WebhookLog{
		EventType:    "unparseable",
		Status:       "failed",
		Payload:      body,
		ErrorMessage: cause.Error(),
	}
	if err := h.logs.Append(ctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to audit rejected webhook")
	}
}
