// Package main is the entry point for the PharmaCore background worker.
// It sweeps expired batches and cleans up stale auth tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/infrastructure/storage/postgres"
	"pharmacore/internal/infrastructure/storage/postgres/account_repo"
	"pharmacore/internal/infrastructure/storage/postgres/auth_repo"
	"pharmacore/internal/infrastructure/storage/postgres/batch_repo"
	"pharmacore/internal/infrastructure/storage/postgres/ledger_repo"
	"pharmacore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting pharmacore worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	ledgerService := ledger.NewService(ledger_repo.NewLedgerRepo())
	vaultService := account.NewService(account_repo.NewAccountRepo())
	batchService := batches.NewService(batch_repo.NewBatchRepo(), ledgerService, vaultService)

	worker := NewWorker(txManager, batchService, auth_repo.NewTokenRepo(), log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic maintenance jobs.
type Worker struct {
	txManager *postgres.TxManager
	batches   *batches.Service
	tokens    *auth_repo.TokenRepo
	log       *logger.Logger

	sweepInterval   time.Duration
	cleanupInterval time.Duration
}

func NewWorker(txManager *postgres.TxManager, batchService *batches.Service, tokens *auth_repo.TokenRepo, log *logger.Logger) *Worker {
	return &Worker{
		txManager:       txManager,
		batches:         batchService,
		tokens:          tokens,
		log:             log.WithComponent("worker"),
		sweepInterval:   getEnvDuration("EXPIRY_SWEEP_INTERVAL", 15*time.Minute),
		cleanupInterval: getEnvDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),
	}
}

// Run executes both jobs once at startup, then on their tickers until
// the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	cleanupTicker := time.NewTicker(w.cleanupInterval)
	defer cleanupTicker.Stop()

	w.sweepExpired(ctx)
	w.cleanupTokens(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			w.sweepExpired(ctx)
		case <-cleanupTicker.C:
			w.cleanupTokens(ctx)
		}
	}
}

// sweepExpired marks batches past their expiry date as expired. Repos
// resolve the TxManager from context, same as HTTP requests do.
func (w *Worker) sweepExpired(ctx context.Context) {
	ctx = postgres.WithTxManager(ctx, w.txManager)

	swept, err := w.batches.SweepExpired(ctx, time.Now())
	if err != nil {
		w.log.Errorw("expiry sweep failed", "error", err)
		return
	}
	if swept > 0 {
		w.log.Infow("expiry sweep finished", "swept", swept)
	}
}

func (w *Worker) cleanupTokens(ctx context.Context) {
	ctx = postgres.WithTxManager(ctx, w.txManager)

	removed, err := w.tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		w.log.Errorw("token cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up expired tokens", "count", removed)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
