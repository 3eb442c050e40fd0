package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	factory, bc, storeRes := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	publisher := factory.OpenPublisher(ctx, bc)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", applog.FieldError, err)
		}
	}()

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		logger.Error("Failed to configure token issuer", applog.FieldError, err)
		os.Exit(1)
	}
	users := cache.NewLRUCache[core.User](cfg.UserCacheSize, 5*time.Minute)
	caches := cache.NewManager()
	caches.Register(users)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	store := storeRes.Store
	opts := services.Options{Publisher: publisher}
	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Auth:     auth.NewProvider(store, tokens, users),
		Wallets:  services.NewWalletService(store, opts),
		Expenses: services.NewExpenseService(store, opts),
		Goals:    services.NewGoalService(store, opts),
		Budgets:  services.NewBudgetService(store, opts),
		Store:    store,
	}, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSOrigins:        cfg.CORSOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", bc.Store,
			"events", bc.Events)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"total_requests", m.TotalRequests,
		"server_errors", m.ServerErrors)
}
