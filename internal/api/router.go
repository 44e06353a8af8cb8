package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apiContext "mailbridge/internal/api/context"
	"mailbridge/internal/api/handlers"
	"mailbridge/internal/api/middleware"
	"mailbridge/internal/pkg/errors"
	"mailbridge/internal/platform/auth"
)

type Dependencies struct {
	HealthHandler     *handlers.HealthHandler
	WebhookHandler    *handlers.WebhookHandler
	SyncHandler       *handlers.SyncHandler
	CampaignHandler   *handlers.CampaignHandler
	AccountHandler    *handlers.AccountHandler
	MessageHandler    *handlers.MessageHandler
	OnboardingHandler *handlers.OnboardingHandler
	AssignmentHandler *handlers.AssignmentHandler
	WebhookLogHandler *handlers.WebhookLogHandler
	AuthMiddleware    *middleware.AuthMiddleware
	TenantMiddleware  *middleware.TenantMiddleware
	MetricsEnabled    bool
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	if deps.MetricsEnabled {
		router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	}

	// Provider webhook ingestion; the provider does not authenticate, the
	// tenant is resolved through the referenced campaign.
	router.POST("/webhooks/instantly/webhook", wrap(deps.WebhookHandler.HandleInstantly))
	router.GET("/webhooks/instantly/health", wrap(deps.WebhookHandler.Health))

	// Public onboarding access behind the shareable token
	router.GET("/o/:token", wrap(deps.OnboardingHandler.Access))
	router.POST("/o/:token/progress", wrap(deps.OnboardingHandler.UpdateProgress))
	router.POST("/o/:token/complete", wrap(deps.OnboardingHandler.Complete))

	// Middleware references
	authMid := deps.AuthMiddleware
	tenantMid := deps.TenantMiddleware

	// Provider sync
	router.POST("/api/v1/sync/workspace",
		chain(deps.SyncHandler.SyncWorkspace, authMid.Handle, tenantMid.Handle))
	router.POST("/api/v1/sync/campaigns/:external_id",
		chain(deps.SyncHandler.SyncCampaign, authMid.Handle, tenantMid.Handle))

	// Campaigns
	router.GET("/api/v1/campaigns",
		chain(deps.CampaignHandler.List, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/campaigns/:id/stats",
		chain(deps.CampaignHandler.Stats, authMid.Handle, tenantMid.Handle))
	router.PUT("/api/v1/campaigns/:id/status",
		chain(deps.CampaignHandler.UpdateStatus, authMid.Handle, tenantMid.Handle))
	router.PUT("/api/v1/campaigns/:id/email-account",
		chain(deps.CampaignHandler.AssignEmailAccount, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/campaigns/:id/messages",
		chain(deps.MessageHandler.ListForCampaign, authMid.Handle, tenantMid.Handle))

	// Email accounts
	router.GET("/api/v1/accounts",
		chain(deps.AccountHandler.List, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/accounts/:id/stats",
		chain(deps.AccountHandler.Stats, authMid.Handle, tenantMid.Handle))
	router.PUT("/api/v1/accounts/:id/status",
		chain(deps.AccountHandler.UpdateStatus, authMid.Handle, tenantMid.Handle))

	// Messages
	router.GET("/api/v1/messages/search",
		chain(deps.MessageHandler.Search, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/messages/stats",
		chain(deps.MessageHandler.OrgStats, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/contacts/:id/messages",
		chain(deps.MessageHandler.ListForContact, authMid.Handle, tenantMid.Handle))

	// Onboarding link administration
	router.POST("/api/v1/onboarding-links",
		chain(deps.OnboardingHandler.Create, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.GET("/api/v1/onboarding-links",
		chain(deps.OnboardingHandler.List, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.GET("/api/v1/onboarding-links/:id",
		chain(deps.OnboardingHandler.Get, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.POST("/api/v1/onboarding-links/:id/revoke",
		chain(deps.OnboardingHandler.Revoke, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.POST("/api/v1/onboarding-links/:id/extend",
		chain(deps.OnboardingHandler.Extend, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))

	// User assignments
	router.POST("/api/v1/assignments/campaigns",
		chain(deps.AssignmentHandler.AssignCampaigns, authMid.Handle, tenantMid.Handle))
	router.POST("/api/v1/assignments/contacts",
		chain(deps.AssignmentHandler.AssignContacts, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/assignments/users",
		chain(deps.AssignmentHandler.OrgUsers, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/users/:id/assignments",
		chain(deps.AssignmentHandler.UserAssignments, authMid.Handle, tenantMid.Handle))
	router.POST("/api/v1/contacts/:id/auto-assign",
		chain(deps.AssignmentHandler.AutoAssignContact, authMid.Handle, tenantMid.Handle))
	router.DELETE("/api/v1/assignments/campaigns/:campaign_id/users/:user_id",
		chain(deps.AssignmentHandler.RemoveCampaignAssignment, authMid.Handle, tenantMid.Handle))
	router.DELETE("/api/v1/assignments/contacts/:contact_id/users/:user_id",
		chain(deps.AssignmentHandler.RemoveContactAssignment, authMid.Handle, tenantMid.Handle))

	// Webhook audit logs
	router.GET("/api/v1/webhook-logs",
		chain(deps.WebhookLogHandler.List, authMid.Handle, tenantMid.Handle))
	router.GET("/api/v1/webhook-logs/:id",
		chain(deps.WebhookLogHandler.Get, authMid.Handle, tenantMid.Handle))
	router.POST("/api/v1/webhook-logs/:id/retry",
		chain(deps.WebhookLogHandler.Retry, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.GET("/api/v1/webhook-stats",
		chain(deps.WebhookLogHandler.Stats, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin, auth.RoleOperator)))
	router.GET("/api/v1/webhook-activity",
		chain(deps.WebhookLogHandler.Recent, authMid.Handle, tenantMid.Handle))
	router.DELETE("/api/v1/webhook-logs",
		chain(deps.WebhookLogHandler.Purge, authMid.Handle, tenantMid.Handle, requireRole(auth.RoleAdmin)))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
