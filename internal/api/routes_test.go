package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/services"
)

func testDependencies(registry *metrics.Registry) Dependencies {
	logger := logging.Discard()
	cfg := &config.Config{Demo: config.DemoConfig{Enabled: true, DataPoints: 40, Seed: 3}}

	flows := services.NewFlowService(nil, nil, cfg, logger, registry)
	prices := services.NewPriceService(logger, registry, services.NewEmbeddedPriceSource())
	corr := services.NewCorrelationService(correlation.NewEngine(correlation.DefaultParams()), prices, logger, registry)
	analytics := services.NewAnalyticsService(config.DashboardConfig{}, config.AlertsConfig{})
	alerts := services.NewAlertService(config.AlertsConfig{}, nil, logger, registry)

	return Dependencies{
		Snapshots:      services.NewRefresher(flows, corr, analytics, alerts, time.Hour, logger),
		Analytics:      analytics,
		Alerts:         alerts,
		Metrics:        registry,
		PageSize:       20,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

func TestSetupRoutes_Registered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testDependencies(metrics.New()))

	registered := map[string]bool{}
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"HEAD /health",
		"GET /live",
		"GET /metrics",
		"GET /api/v1/dashboard",
		"POST /api/v1/refresh",
		"GET /api/v1/flows",
		"GET /api/v1/flows/export",
		"GET /api/v1/movements",
		"GET /api/v1/statistics",
		"GET /api/v1/correlation",
		"GET /api/v1/analysis",
		"GET /api/v1/alerts",
		"GET /api/v1/alerts/rules",
		"POST /api/v1/alerts/rules",
		"DELETE /api/v1/alerts/rules/:id",
		"GET /api/v1/cache",
		"DELETE /api/v1/cache",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetupRoutes_WithoutMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testDependencies(nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_FlowsServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testDependencies(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/flows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":40`)
	assert.Contains(t, w.Body.String(), `"limit":20`)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
