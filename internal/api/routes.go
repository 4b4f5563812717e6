package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/api/handlers"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/middleware"
	"github.com/irfndi/etfflow-go/internal/services"
	"github.com/irfndi/etfflow-go/internal/telemetry"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies are the services the HTTP layer is built on. Redis, Cache
// and Metrics may be nil.
type Dependencies struct {
	Snapshots handlers.SnapshotProvider
	Analytics *services.AnalyticsService
	Alerts    *services.AlertService
	Redis     handlers.HealthChecker
	Cache     handlers.FlowCacheManager
	Breakers  map[string]handlers.BreakerReporter
	Metrics   *metrics.Registry
	PageSize  int
	Logger    logrus.FieldLogger
	// AllowedOrigins are the browser origins permitted by CORS.
	AllowedOrigins []string
}

// SetupRoutes registers the health, metrics and /api/v1 routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.TelemetryMiddleware(telemetry.ServiceName))
	router.Use(middleware.RequestID())

	healthHandler := handlers.NewHealthHandler(deps.Redis, deps.Snapshots, Version).
		WithCache(deps.Cache).
		WithBreakers(deps.Breakers)
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	dashboardHandler := handlers.NewDashboardHandler(deps.Snapshots, deps.Analytics, deps.PageSize, deps.Logger)
	alertHandler := handlers.NewAlertHandler(deps.Alerts)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", dashboardHandler.GetSummary)
		v1.POST("/refresh", dashboardHandler.Refresh)

		flows := v1.Group("/flows")
		{
			flows.GET("", dashboardHandler.GetFlows)
			flows.GET("/export", dashboardHandler.ExportFlows)
		}

		v1.GET("/movements", dashboardHandler.GetMovements)
		v1.GET("/statistics", dashboardHandler.GetStatistics)
		v1.GET("/correlation", dashboardHandler.GetCorrelation)
		v1.GET("/analysis", dashboardHandler.GetAnalysis)

		v1.GET("/cache", cacheHandler.GetStats)
		v1.DELETE("/cache", cacheHandler.Clear)

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", dashboardHandler.GetAlerts)
			alerts.GET("/rules", alertHandler.ListRules)
			alerts.POST("/rules", alertHandler.CreateRule)
			alerts.DELETE("/rules/:id", alertHandler.DeleteRule)
		}
	}
}
