package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/api/middleware"
	"mailbridge/internal/platform/auth"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func routeParams(r *http.Request) httprouter.Params {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params
}

func tenantFrom(r *http.Request) *middleware.TenantContext {
	tenant, _ := r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)
	return tenant
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(apiContext.Claims).(*auth.Claims)
	return claims
}

// pagination reads limit/offset query params with a clamped limit.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
