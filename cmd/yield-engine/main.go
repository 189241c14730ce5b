// Package main provides the entry point for the yield engine service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/health"
	"github.com/yourusername/yield-engine/internal/logger"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/recommendation"
	"github.com/yourusername/yield-engine/internal/repository"
	"github.com/yourusername/yield-engine/internal/scheduler"
)

func main() {
	cfg, err := config.LoadWithDefaults("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("Yield engine starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	source, err := eventsource.NewSource(cfg.EventSource, repos, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize event source")
	}
	appLog.WithField("mode", cfg.EventSource.Mode).Info("Event source initialized")

	metrics.InitRegistry()
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path, appLog)
	}

	healthServer := health.NewServer(cfg.App.Name, cfg.Health.Port, appLog)
	healthServer.RegisterCheck("database", db.HealthCheck)
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	generator := recommendation.NewGenerator(repos.Recommendation, repos.BidderConfig, source, &cfg.Recommendation, appLog)
	jobs := scheduler.New(generator, repos.Recommendation, repos.BidderConfig, &cfg.Scheduler, cfg.Recommendation.WindowDays, appLog)
	if err := jobs.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}

	healthServer.SetReady(true)
	appLog.Info("Yield engine ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	appLog.WithField("signal", sig.String()).Info("Shutdown signal received")
	healthServer.SetReady(false)
	cancel()
}
