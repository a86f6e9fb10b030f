package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/auth"
	"ledger/internal/config"
	"ledger/internal/db"
	"ledger/internal/handlers"
	"ledger/internal/ratelimit"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	database, err := db.Connect(cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	accounts := store.NewAccountStore(database)
	keys := store.NewAPIKeyStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	webhooks := store.NewWebhookStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	limiter := ratelimit.New(cfg.Keys.RateLimitWindow)
	hasher := auth.NewHasher(cfg.Keys.Pepper)
	authenticator := auth.NewAuthenticator(keys, limiter, hasher, logger, cfg.Keys.LastUsedTimeout)

	keyService := services.NewKeyService(txRunner, keys, accounts, audit, hasher, cfg.Keys.DefaultRateLimit, logger)
	accountService := services.NewAccountService(txRunner, accounts, keyService, audit, cfg.Ledger.DefaultCurrency, logger)
	webhookService := services.NewWebhookService(webhooks, accountService, logger)
	transactionService := services.NewTransactionService(txRunner, accountService, accountService, transactions, hub, webhookService, logger)

	handler := handlers.New(cfg.AllowedOrigins, authenticator, handlers.Services{
		Accounts:     accountService,
		Keys:         keyService,
		Transactions: transactionService,
		Webhooks:     webhookService,
		Audit:        audit,
		Reconciler:   transactions,
	}, hub, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pruneBuckets(ctx, limiter, cfg.Keys.BucketIdleTTL, logger)

	go func() {
		logger.Info("ledger API listening", slog.String("addr", server.Addr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}
	authenticator.Wait()
	logger.Info("server stopped")
}

// pruneBuckets drops limiter windows for keys idle longer than ttl.
func pruneBuckets(ctx context.Context, limiter *ratelimit.Limiter, ttl time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(ttl); n > 0 {
				logger.Debug("pruned rate limit buckets", slog.Int("count", n))
			}
		}
	}
}
