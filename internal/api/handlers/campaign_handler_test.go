package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/julienschmidt/httprouter"
	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/api/middleware"
	"mailbridge/internal/engine/campaigns"
	"mailbridge/internal/platform/database"
)

func newCampaignHandler(t *testing.T) (*CampaignHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	pool := database.NewTenantPool(db)
	service := campaigns.NewService(campaigns.NewRepository(pool), pool)
	return NewCampaignHandler(service), mock, func() { db.Close() }
}

func statusRequest(campaignID string, tenant *middleware.TenantContext) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/campaigns/"+campaignID+"/status",
		strings.NewReader(`{"status": "paused"}`))
	ctx := context.WithValue(req.Context(), apiContext.Tenant, tenant)
	ctx = context.WithValue(ctx, apiContext.Params, httprouter.Params{{Key: "id", Value: campaignID}})
	return req.WithContext(ctx)
}

func TestUpdateStatusScopedToTenantOrg(t *testing.T) {
	handler, mock, cleanup := newCampaignHandler(t)
	defer cleanup()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs("org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE campaign").
		WithArgs("paused", "local_1", "org_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, statusRequest("local_1", &middleware.TenantContext{OrgID: "org_1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusForeignCampaignIs404(t *testing.T) {
	handler, mock, cleanup := newCampaignHandler(t)
	defer cleanup()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs("org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE campaign").
		WithArgs("paused", "camp_other_org", "org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, statusRequest("camp_other_org", &middleware.TenantContext{OrgID: "org_1"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another org's campaign, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
