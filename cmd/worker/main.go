package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/engine/onboarding"
	"mailbridge/internal/engine/webhooklogs"
	"mailbridge/internal/pkg/logger"
	"mailbridge/internal/platform/config"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/workers"
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

	accountSvc := accounts.NewService(accounts.NewRepository(pool), pool)
	onboardingSvc := onboarding.NewService(onboarding.NewRepository(pool), cfg.Onboarding.BaseURL)
	logSvc := webhooklogs.NewService(webhooklogs.NewRepository(pool), cfg.Webhooks.LogRetentionDays)

	maintenance := workers.NewMaintenance(accountSvc, onboardingSvc, logSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting maintenance workers...")
	go maintenance.RunDailyReset(ctx)
	maintenance.RunSweeps(ctx, cfg.Worker.Interval)

	log.Println("Workers stopped")
}
