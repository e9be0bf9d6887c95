// Package main is the entry point for the PharmaCore API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacore/internal/core/security"
	"pharmacore/internal/domain/auth"
	v1 "pharmacore/internal/infrastructure/http/v1"
	"pharmacore/internal/infrastructure/numerator"
	"pharmacore/internal/infrastructure/storage/postgres"
	"pharmacore/internal/infrastructure/storage/postgres/auth_repo"
	"pharmacore/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting pharmacore server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Auth Service ---
	// Repos get the TxManager from context per-request.
	authService := auth.NewService(
		auth_repo.NewUserRepo(),
		auth_repo.NewTokenRepo(),
		nil,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Numerator Service ---
	// Number generation runs outside business transactions against a
	// direct pool connection, so gaps never block document creation.
	numeratorService := numerator.New(pool)

	// --- Audit Service ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Approval policy ---
	policy := approvalPolicy(log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:         pool,
		TxManager:    txManager,
		Logger:       log,
		JWTValidator: jwtService,
		AuthService:  authService,
		Numerator:    numeratorService,
		Policy:       policy,
		Auditor:      auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// approvalPolicy builds the document approval policy from environment.
// APPROVAL_POLICY=strict forbids any transition dated before CLOSED_UNTIL;
// the default flexible policy only warns about stale documents.
func approvalPolicy(log *logger.Logger) security.ApprovalPolicy {
	closedUntil := time.Time{}
	if raw := getEnv("CLOSED_UNTIL", ""); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			log.Fatalw("invalid CLOSED_UNTIL, expected YYYY-MM-DD", "value", raw, "error", err)
		}
		closedUntil = parsed
	}

	if getEnv("APPROVAL_POLICY", "flexible") == "strict" {
		return security.NewStrictPolicy(closedUntil)
	}
	return security.NewFlexiblePolicy(getEnvDuration("APPROVAL_WARNING_THRESHOLD", 72*time.Hour), closedUntil)
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
