package main

import (
	"context"
	"os"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting fintrack-worker", "events", cfg.EventsBackend)

	ctx, stop := cli.SignalContext()
	defer stop()

	factory, bc, storeRes := cli.OpenStore(ctx, logger, cfg)
	defer storeRes.Cleanup()

	consumer, err := factory.OpenConsumer(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize event consumer", applog.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	watcher := worker.NewBudgetWatcher(storeRes.Store, logger, nil)
	if err := watcher.Run(ctx, consumer); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	processed, alerts := watcher.Stats()
	logger.InfoContext(context.Background(), "Worker stopped gracefully",
		"processed", processed,
		"alerts", alerts)
}
