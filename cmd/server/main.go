package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mailbridge/internal/api"
	"mailbridge/internal/api/handlers"
	"mailbridge/internal/api/middleware"
	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/engine/assignments"
	"mailbridge/internal/engine/campaigns"
	"mailbridge/internal/engine/messages"
	"mailbridge/internal/engine/onboarding"
	"mailbridge/internal/engine/webhook"
	"mailbridge/internal/engine/webhooklogs"
	"mailbridge/internal/instantly"
	"mailbridge/internal/pkg/logger"
	"mailbridge/internal/platform/auth"
	"mailbridge/internal/platform/config"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/metrics"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pool := database.NewTenantPool(db)

	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	// Services
	campaignSvc := campaigns.NewService(campaigns.NewRepository(pool), pool)
	accountSvc := accounts.NewService(accounts.NewRepository(pool), pool)
	messageSvc := messages.NewService(messages.NewRepository(pool))
	onboardingSvc := onboarding.NewService(onboarding.NewRepository(pool), cfg.Onboarding.BaseURL)
	assignmentSvc := assignments.NewService(assignments.NewRepository(pool))
	logSvc := webhooklogs.NewService(webhooklogs.NewRepository(pool), cfg.Webhooks.LogRetentionDays)

	eventRouter := webhook.NewRouter(campaignSvc, messageSvc, messageSvc, accountSvc, logSvc)
	providerClient := instantly.NewClient(cfg.Instantly)
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	deps := &api.Dependencies{
		HealthHandler:     handlers.NewHealthHandler(pool),
		WebhookHandler:    handlers.NewWebhookHandler(eventRouter, logSvc),
		SyncHandler:       handlers.NewSyncHandler(providerClient, campaignSvc, accountSvc),
		CampaignHandler:   handlers.NewCampaignHandler(campaignSvc),
		AccountHandler:    handlers.NewAccountHandler(accountSvc),
		MessageHandler:    handlers.NewMessageHandler(messageSvc),
		OnboardingHandler: handlers.NewOnboardingHandler(onboardingSvc),
		AssignmentHandler: handlers.NewAssignmentHandler(assignmentSvc),
		WebhookLogHandler: handlers.NewWebhookLogHandler(logSvc),
		AuthMiddleware:    middleware.NewAuthMiddleware(tokenSvc),
		TenantMiddleware:  middleware.NewTenantMiddleware(),
		MetricsEnabled:    cfg.Metrics.Enabled,
	}
	router := api.NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
