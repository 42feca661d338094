package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmslot/seamless-wallet/internal/guard"
	"github.com/mmslot/seamless-wallet/internal/handler"
	"github.com/mmslot/seamless-wallet/internal/infra"
	"github.com/mmslot/seamless-wallet/internal/ledger"
	"github.com/mmslot/seamless-wallet/internal/provider"
	"github.com/mmslot/seamless-wallet/internal/repository"
	"github.com/mmslot/seamless-wallet/internal/retry"
	"github.com/mmslot/seamless-wallet/internal/settlement"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("wallet server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("wallet-server connected to postgres")

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Per-user settlement mutex. Redis when reachable, in-process otherwise
	// (single-instance deployments only).
	var userLock guard.UserLock
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-process user lock", "error", err)
		userLock = guard.NewMemoryUserLock()
	} else {
		defer redisClient.Close()
		userLock = guard.NewRedisUserLock(redisClient)
	}

	// Repositories & services
	walletRepo := repository.NewWalletRepository()
	wagerRepo := repository.NewWagerRepository()
	txRepo := repository.NewTransactionRepository()
	eventRepo := repository.NewEventRepository()
	refRepo := repository.NewReferenceRepository()
	outboxRepo := repository.NewOutboxRepository()
	auditRepo := repository.NewAuditRepository()

	walletSvc := ledger.NewPgWalletService(walletRepo, auditRepo)
	engine := ledger.NewEngine(walletRepo, outboxRepo, walletSvc)

	settleSvc := settlement.NewService(settlement.Deps{
		DB:        pool,
		Runner:    retry.NewPgxRunner(pool),
		Locks:     userLock,
		LockTTL:   cfg.UserLockTTL,
		HouseID:   cfg.HouseHolderID,
		Events:    eventRepo,
		Wagers:    wagerRepo,
		Lines:     txRepo,
		Refs:      refRepo,
		Wallets:   walletRepo,
		Outbox:    outboxRepo,
		Engine:    engine,
		WalletSvc: walletSvc,
		Logger:    logger,
	})

	reconciler := settlement.NewReconciler(pool, eventRepo, logger, time.Minute)
	go reconciler.Run(ctx)

	adapter := provider.NewSeamlessAdapter(cfg.WebhookSecret)
	seamlessHandler := handler.NewSeamlessHandler(adapter, settleSvc, logger)

	// Router
	r := chi.NewRouter()
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(pool))

	// Webhooks need the raw body for signature verification.
	r.Route("/webhooks/seamless", func(r chi.Router) {
		r.Post("/settle", seamlessHandler.HandleSettle)
		r.Post("/refund", seamlessHandler.HandleRefund)
		r.Get("/balance/{memberID}", seamlessHandler.HandleBalance)
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wallet-server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("wallet-server shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("wallet-server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("wallet-server shutdown failed: %w", err)
	}

	logger.Info("wallet-server stopped gracefully")
	return nil
}
