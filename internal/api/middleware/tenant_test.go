package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/platform/auth"
)

func requestWithClaims(claims *auth.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	if claims == nil {
		return req
	}
	ctx := context.WithValue(req.Context(), apiContext.Claims, claims)
	return req.WithContext(ctx)
}

func TestTenantMiddlewareResolvesOrgScope(t *testing.T) {
	var captured *TenantContext
	next := func(w http.ResponseWriter, r *http.Request) {
		captured, _ = r.Context().Value(apiContext.Tenant).(*TenantContext)
	}

	rec := httptest.NewRecorder()
	NewTenantMiddleware().Handle(next)(rec, requestWithClaims(&auth.Claims{
		UserID:         "user_1",
		OrganizationID: "org_1",
		Role:           "member",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured == nil || captured.OrgID != "org_1" || captured.IsAdmin {
		t.Errorf("unexpected tenant scope: %+v", captured)
	}
}

func TestTenantMiddlewarePlatformRoleGetsAdminScope(t *testing.T) {
	var captured *TenantContext
	next := func(w http.ResponseWriter, r *http.Request) {
		captured, _ = r.Context().Value(apiContext.Tenant).(*TenantContext)
	}

	rec := httptest.NewRecorder()
	NewTenantMiddleware().Handle(next)(rec, requestWithClaims(&auth.Claims{
		UserID: "op_1",
		Role:   auth.RoleAdmin,
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured == nil || !captured.IsAdmin {
		t.Errorf("expected admin scope, got %+v", captured)
	}
}

func TestTenantMiddlewareRejectsOrglessCustomerToken(t *testing.T) {
	called := false
	next := func(w http.ResponseWriter, r *http.Request) { called = true }

	rec := httptest.NewRecorder()
	NewTenantMiddleware().Handle(next)(rec, requestWithClaims(&auth.Claims{
		UserID: "user_1",
		Role:   "member",
	}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if called {
		t.Error("next handler should not run")
	}
}

func TestTenantMiddlewareRequiresClaims(t *testing.T) {
	rec := httptest.NewRecorder()
	NewTenantMiddleware().Handle(func(w http.ResponseWriter, r *http.Request) {})(rec, requestWithClaims(nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
