package middleware

import (
	"context"
	"net/http"

	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/platform/auth"
)

// TenantContext is the resolved tenancy scope for one request. Platform
// operators carry an empty OrgID and the admin flag instead.
type TenantContext struct {
	OrgID   string
	IsAdmin bool
}

type TenantMiddleware struct{}

func NewTenantMiddleware() *TenantMiddleware {
	return &TenantMiddleware{}
}

// Handle derives the tenant scope from the validated claims. Customer tokens
// must name an organization; platform-role tokens get cross-tenant scope.
func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
			return
		}

		tenant := &TenantContext{
			OrgID:   claims.OrganizationID,
			IsAdmin: claims.IsPlatformRole(),
		}
		if tenant.OrgID == "" && !tenant.IsAdmin {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Token carries no organization", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Tenant, tenant)
		next(w, r.WithContext(ctx))
	}
}
