package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/api/middleware"
	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/engine/campaigns"
	"mailbridge/internal/instantly"
)

type fakeClient struct {
	workspace    *instantly.Workspace
	campaigns    []instantly.Campaign
	accounts     []instantly.EmailAccount
	workspaceErr error
}

func (f *fakeClient) GetCurrentWorkspace(ctx context.Context) (*instantly.Workspace, error) {
	return f.workspace, f.workspaceErr
}

func (f *fakeClient) ListCampaigns(ctx context.Context, opts instantly.ListCampaignsOptions) ([]instantly.Campaign, error) {
	return f.campaigns, nil
}

func (f *fakeClient) GetCampaign(ctx context.Context, campaignID string) (*instantly.Campaign, error) {
	for _, c := range f.campaigns {
		if c.ID == campaignID {
			return &c, nil
		}
	}
	return nil, &instantly.APIError{StatusCode: 404, Message: "campaign not found"}
}

func (f *fakeClient) ListEmailAccounts(ctx context.Context, status string) ([]instantly.EmailAccount, error) {
	return f.accounts, nil
}

type fakeCampaignImporter struct {
	orgID  string
	result *campaigns.ImportResult
}

func (f *fakeCampaignImporter) ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.Campaign) (*campaigns.ImportResult, error) {
	f.orgID = orgID
	if f.result != nil {
		return f.result, nil
	}
	return &campaigns.ImportResult{Imported: len(items), Total: len(items)}, nil
}

type fakeAccountImporter struct {
	result *accounts.ImportResult
}

func (f *fakeAccountImporter) ImportFromProvider(ctx context.Context, orgID, connectionID string, items []instantly.EmailAccount) (*accounts.ImportResult, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &accounts.ImportResult{Imported: len(items), Total: len(items)}, nil
}

func withTenant(req *http.Request, tenant *middleware.TenantContext) *http.Request {
	ctx := context.WithValue(req.Context(), apiContext.Tenant, tenant)
	return req.WithContext(ctx)
}

func TestSyncWorkspaceImportsBoth(t *testing.T) {
	client := &fakeClient{
		workspace: &instantly.Workspace{ID: "ws_1", Name: "Acme"},
		campaigns: []instantly.Campaign{{ID: "camp_1", Name: "Outreach", Status: "active"}},
		accounts:  []instantly.EmailAccount{{ID: "acct_1", Email: "sender@acme.com", Status: "active"}},
	}
	campaignImp := &fakeCampaignImporter{}
	handler := NewSyncHandler(client, campaignImp, &fakeAccountImporter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/workspace", strings.NewReader(`{}`))
	req = withTenant(req, &middleware.TenantContext{OrgID: "org_1"})
	rec := httptest.NewRecorder()
	handler.SyncWorkspace(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if campaignImp.orgID != "org_1" {
		t.Errorf("expected tenant org used, got %q", campaignImp.orgID)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	for _, key := range []string{"workspace", "campaigns", "accounts"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("expected %s in response", key)
		}
	}
}

func TestSyncWorkspaceTenantCannotPickAnotherOrg(t *testing.T) {
	client := &fakeClient{workspace: &instantly.Workspace{ID: "ws_1"}}
	campaignImp := &fakeCampaignImporter{}
	handler := NewSyncHandler(client, campaignImp, &fakeAccountImporter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/workspace",
		strings.NewReader(`{"organization_id": "org_other"}`))
	req = withTenant(req, &middleware.TenantContext{OrgID: "org_1"})
	rec := httptest.NewRecorder()
	handler.SyncWorkspace(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if campaignImp.orgID != "org_1" {
		t.Errorf("expected tenant org enforced, got %q", campaignImp.orgID)
	}
}

func TestSyncWorkspaceProviderAuthFailureIs502(t *testing.T) {
	client := &fakeClient{workspaceErr: &instantly.AuthenticationError{
		APIError: instantly.APIError{StatusCode: 401, Message: "invalid key"},
	}}
	handler := NewSyncHandler(client, &fakeCampaignImporter{}, &fakeAccountImporter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/workspace", nil)
	req = withTenant(req, &middleware.TenantContext{OrgID: "org_1"})
	rec := httptest.NewRecorder()
	handler.SyncWorkspace(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestSyncWorkspaceRateLimitIs429(t *testing.T) {
	client := &fakeClient{workspaceErr: &instantly.RateLimitError{
		APIError: instantly.APIError{StatusCode: 429, Message: "slow down"},
	}}
	handler := NewSyncHandler(client, &fakeCampaignImporter{}, &fakeAccountImporter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/workspace", nil)
	req = withTenant(req, &middleware.TenantContext{OrgID: "org_1"})
	rec := httptest.NewRecorder()
	handler.SyncWorkspace(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
