package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cocinarte/cmd/consumers/jobs"
	"cocinarte/internal/app"
	"cocinarte/internal/config"
	"cocinarte/internal/consumers"
	"cocinarte/internal/logger"
)

func main() {
	cfg := config.Load()
	cfg.NATS.ClientID = "cocinarte-consumers"

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()
	log.Info("Starting consumers service...")

	a, err := app.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumerService *consumers.ConsumerService
	if a.NATS != nil {
		handlers := consumers.NewHandlers(a.Repos.Classes, indexOrNil(a), cacheOrNil(a))
		consumerService = consumers.NewConsumerService(a.NATS, handlers)
		if err := consumerService.Start(); err != nil {
			logger.Fatal("Failed to start consumers", "error", err)
		}
	} else {
		log.Warn("Event bus unavailable, only scheduled jobs will run")
	}

	settlement := jobs.NewHoldSettlementJob(a.Services.Settlement, cfg.Jobs.SettlementInterval, cfg.Jobs.CaptureWindow)
	abandoned := jobs.NewAbandonedHoldJob(a.Services.Settlement, cfg.Jobs.AbandonInterval, cfg.Jobs.AbandonTTL)
	settlement.Start(ctx)
	abandoned.Start(ctx)

	log.Info("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")

	settlement.Stop()
	abandoned.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if consumerService != nil {
		if err := consumerService.Shutdown(shutdownCtx); err != nil {
			log.Error("Error closing subscriptions", "error", err)
		}
	}
	if err := a.Close(); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Consumers service stopped")
}

// Typed nils must not reach the handlers as non-nil interfaces
func indexOrNil(a *app.App) consumers.ClassIndexer {
	if a.Search == nil {
		return nil
	}
	return a.Search
}

func cacheOrNil(a *app.App) consumers.ClassListInvalidator {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}
