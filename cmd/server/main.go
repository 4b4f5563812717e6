package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/api"
	"github.com/irfndi/etfflow-go/internal/app"
	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// main serves as the entry point for the application.
// It delegates execution to the run function and handles exit codes based on success or failure.
func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, starts the refresher and the HTTP server, and
// blocks until ctx is cancelled, then shuts everything down.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	tp, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize telemetry - continuing without tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if cfg.Dashboard.AutoRefresh {
		application.Refresher.Start(ctx)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	api.SetupRoutes(router, application.RouteDependencies())

	srv := newServer(cfg.Server.Port, router)

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":      cfg.Server.Port,
			"demo_mode": cfg.IsDemoMode(),
			"version":   api.Version,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

// newServer creates the HTTP server with security timeouts. The CSV export
// is the slowest response, so writes get more room than reads.
func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
