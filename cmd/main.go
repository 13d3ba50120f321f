package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tronwatch/tronwatch_service/internal/api/routes"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/config"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/di"
	"github.com/tronwatch/tronwatch_service/pkg/graceful"
	"github.com/tronwatch/tronwatch_service/pkg/logger"
	"github.com/tronwatch/tronwatch_service/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	// Initialize OpenTelemetry tracing
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.IsDevelopment(),
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Components stop in reverse registration order: source first so its
	// final state flush and disconnected event still reach the relay.
	shutdown := graceful.NewShutdownManager(server, log)
	shutdown.Register("tracing", graceful.ShutdownFunc(func(timeout time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tracingShutdown(ctx)
	}))
	shutdown.Register("connections", graceful.ShutdownFunc(func(time.Duration) error {
		return container.Close()
	}))

	ctx := context.Background()

	container.Dispatcher.Start(ctx)
	shutdown.Register("notification dispatcher", graceful.ShutdownFunc(func(time.Duration) error {
		return container.Dispatcher.Stop()
	}))

	if !container.SenderConfigured {
		log.Warn("Messaging channel not configured; transfers are logged only",
			"channel", cfg.Notifier.Channel)
	}

	if err := container.ReportWorker.Start(); err != nil {
		log.Fatal("Failed to start balance report worker", "error", err)
	}
	shutdown.Register("balance report worker", graceful.ShutdownFunc(func(time.Duration) error {
		container.ReportWorker.Stop()
		return nil
	}))

	container.Relay.Start(container.Source)
	shutdown.Register("relay", graceful.ShutdownFunc(func(time.Duration) error {
		container.Relay.Stop()
		return nil
	}))

	if cfg.Monitoring.Enabled {
		if err := container.Source.Start(ctx); err != nil {
			log.Fatal("Failed to start activity source", "error", err)
		}
		log.Info("Activity source started",
			"strategy", cfg.Monitoring.Strategy,
			"wallets", len(container.Store.Wallets()))
	} else {
		log.Info("Monitoring disabled; start it with POST /api/v1/monitor/start")
	}
	shutdown.Register("activity source", graceful.ShutdownFunc(func(timeout time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return container.StopSource(ctx)
	}))

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"read_timeout", cfg.Server.ReadTimeout,
			"write_timeout", cfg.Server.WriteTimeout,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}
