package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tronwatch/tronwatch_service/internal/api/handlers"
	"github.com/tronwatch/tronwatch_service/internal/api/middleware"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/di"
	"github.com/tronwatch/tronwatch_service/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	handlers.RegisterValidators()
	log := container.ZapLog

	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecurityHeaders())

	healthHandler := handlers.NewHealthHandler(container.HealthChecks(), log, container.Version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ping", healthHandler.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	monitorHandlers := handlers.NewMonitorHandlers(container.Source, log)
	walletHandlers := handlers.NewWalletHandlers(container.Store, container.Source, log)
	reportHandlers := handlers.NewReportHandlers(
		container.ReportWorker,
		container.Formatter,
		container.Dispatcher,
		container.Source,
		log,
	)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	v1.Use(middleware.AdminAuth(container.Config.Server.AdminToken))
	{
		monitor := v1.Group("/monitor")
		{
			monitor.GET("/status", monitorHandlers.GetStatus)
			monitor.POST("/start", monitorHandlers.Start)
			monitor.POST("/stop", monitorHandlers.Stop)
		}

		wallets := v1.Group("/wallets")
		{
			wallets.GET("", walletHandlers.ListWallets)
			wallets.POST("", walletHandlers.AddWallet)
			wallets.PUT("/:address", walletHandlers.UpdateWallet)
			wallets.DELETE("/:address", walletHandlers.RemoveWallet)
		}

		v1.GET("/keys", walletHandlers.GetAPIKeys)
		v1.PUT("/keys", walletHandlers.SetAPIKeys)

		v1.POST("/reports/balance", reportHandlers.RunBalanceReport)
		v1.POST("/notifications/test", reportHandlers.SendTestNotification)
	}

	return router
}
