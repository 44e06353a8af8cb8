package handlers

import (
	"net/http"
	"time"

	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/platform/database"
)

type HealthHandler struct {
	pool *database.TenantPool
}

func NewHealthHandler(pool *database.TenantPool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.DB().PingContext(r.Context()); err != nil {
		errors.WriteError(w, http.StatusServiceUnavailable, errors.ErrCodeInternal, "Database unreachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
