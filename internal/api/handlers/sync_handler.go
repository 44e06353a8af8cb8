package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/engine/campaigns"
	"mailbridge/internal/instantly"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/platform/metrics"
)

type providerClient interface {
	GetCurrentWorkspace(ctx context.Context) (*instantly.Workspace, error)
	ListCampaigns(ctx context.Context, opts instantly.ListCampaignsOptions) ([]instantly.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (*instantly.Campaign, error)
	ListEmailAccounts(ctx context.Context, status string) ([]instantly.EmailAccount, error)
}

type campaignImporter interface {
	ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.Campaign) (*campaigns.ImportResult, error)
}

type accountImporter interface {
	ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.EmailAccount) (*accounts.ImportResult, error)
}

type SyncHandler struct {
	client          providerClient
	campaignService campaignImporter
	accountService  accountImporter
}

func NewSyncHandler(client providerClient, campaignService campaignImporter, accountService accountImporter) *SyncHandler {
	return &SyncHandler{
		client:          client,
		campaignService: campaignService,
		accountService:  accountService,
	}
}

// SyncWorkspace pulls the full workspace snapshot from the provider and
// upserts campaigns and email accounts for the caller's organization.
func (h *SyncHandler) SyncWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
		ConnectionID   string `json:"connection_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	orgID := h.resolveOrg(r, req.OrganizationID)
	if orgID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "organization_id is required", nil)
		return
	}

	ctx := r.Context()
	workspace, err := h.client.GetCurrentWorkspace(ctx)
	if err != nil {
		metrics.ProviderSyncTotal.WithLabelValues("failure").Inc()
		writeProviderError(w, err)
		return
	}

	providerCampaigns, err := h.client.ListCampaigns(ctx, instantly.ListCampaignsOptions{})
	if err != nil {
		metrics.ProviderSyncTotal.WithLabelValues("failure").Inc()
		writeProviderError(w, err)
		return
	}
	providerAccounts, err := h.client.ListEmailAccounts(ctx, "")
	if err != nil {
		metrics.ProviderSyncTotal.WithLabelValues("failure").Inc()
		writeProviderError(w, err)
		return
	}

	campaignResult, err := h.campaignService.ImportFromProvider(ctx, orgID, req.ConnectionID, providerCampaigns)
	if err != nil {
		metrics.ProviderSyncTotal.WithLabelValues("failure").Inc()
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Campaign import failed", nil)
		return
	}
	accountResult, err := h.accountService.ImportFromProvider(ctx, orgID, req.ConnectionID, providerAccounts)
	if err != nil {
		metrics.ProviderSyncTotal.WithLabelValues("failure").Inc()
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Account import failed", nil)
		return
	}

	metrics.ProviderSyncTotal.WithLabelValues("success").Inc()
	log.Info().
		Str("organization_id", orgID).
		Int("campaigns", campaignResult.Total).
		Int("accounts", accountResult.Total).
		Msg("workspace sync completed")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workspace": workspace,
		"campaigns": campaignResult,
		"accounts":  accountResult,
	})
}

// SyncCampaign refreshes a single campaign by its provider id.
func (h *SyncHandler) SyncCampaign(w http.ResponseWriter, r *http.Request) {
	externalID := routeParams(r).ByName("external_id")
	orgID := h.resolveOrg(r, r.URL.Query().Get("organization_id"))
	if orgID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "organization_id is required", nil)
		return
	}

	campaign, err := h.client.GetCampaign(r.Context(), externalID)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	result, err := h.campaignService.ImportFromProvider(r.Context(), orgID, "", []instantly.Campaign{*campaign})
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Campaign import failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// resolveOrg prefers the tenant scope; platform operators may name any org.
func (h *SyncHandler) resolveOrg(r *http.Request, requested string) string {
	tenant := tenantFrom(r)
	if tenant == nil {
		return ""
	}
	if tenant.IsAdmin && requested != "" {
		return requested
	}
	return tenant.OrgID
}

func writeProviderError(w http.ResponseWriter, err error) {
	var rateLimitErr *instantly.RateLimitError
	var authErr *instantly.AuthenticationError
	var apiErr *instantly.APIError

	switch {
	case stderrors.As(err, &rateLimitErr):
		errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Provider rate limit exceeded", nil)
	case stderrors.As(err, &authErr):
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeProviderError, "Provider authentication failed", nil)
	case stderrors.As(err, &apiErr):
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeProviderError, apiErr.Message, nil)
	default:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Provider request failed", nil)
	}
}
