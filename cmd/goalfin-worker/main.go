package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goalfin/internal/amqp"
	"goalfin/internal/config"
	applog "goalfin/internal/log"
	"goalfin/internal/services"
	"goalfin/internal/storage"
	"goalfin/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.LevelFromEnv(),
		Component: "worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting goalfin-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	analytics := services.NewAnalyticsService(repo, nil, nil)
	snapshotWorker := worker.NewSnapshotWorker(analytics, repo, amqpClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume queued snapshot requests.
	go func() {
		if err := amqpClient.ConsumeSnapshotRequests(ctx, func(msg *amqp.SnapshotRequest) error {
			return snapshotWorker.HandleSnapshotRequest(ctx, msg)
		}); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Enqueue the nightly run for every user.
	go func() {
		if err := snapshotWorker.RunScheduler(ctx, cfg.SnapshotHour); err != nil && err != context.Canceled {
			logger.Error("Scheduler stopped", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
