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

	"github.com/venturelink/payments-service/internal/config"
	"github.com/venturelink/payments-service/internal/handler"
	"github.com/venturelink/payments-service/internal/logging"
	"github.com/venturelink/payments-service/internal/middleware"
	"github.com/venturelink/payments-service/internal/repository"
	"github.com/venturelink/payments-service/internal/secrets"
	"github.com/venturelink/payments-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("payments-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	payments := repository.NewPaymentRepository(db)
	webhookLogs := repository.NewWebhookLogRepository(db)
	subscriptions := repository.NewSubscriptionRepository(db)

	activator := service.NewSubscriptionActivator(subscriptions, logger)
	reconciler := service.NewReconciler(payments, webhookLogs, db, activator, logger)

	secretSource := secrets.NewRotatableSource(cfg.WebhookSecret)

	webhookHandler := handler.NewWebhookHandler(
		reconciler,
		webhookLogs,
		secretSource,
		cfg.WebhookMaxBodyBytes,
		cfg.WebhookTolerance(),
		cfg.WebhookHandlerTimeout(),
	)
	paymentHandler := handler.NewPaymentHandler(payments)
	logHandler := handler.NewWebhookLogHandler(webhookLogs)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /api/v1/webhooks/gateway", webhookHandler.HandleGatewayEvent)
	mux.HandleFunc("POST /api/v1/payments", paymentHandler.InitiatePayment)
	mux.HandleFunc("GET /api/v1/payments/{reference}", paymentHandler.GetPayment)
	mux.HandleFunc("GET /api/v1/webhooks/logs", logHandler.ListLogs)

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
