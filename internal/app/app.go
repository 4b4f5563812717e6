// Package app wires configuration into the running services.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/api"
	"github.com/irfndi/etfflow-go/internal/api/handlers"
	"github.com/irfndi/etfflow-go/internal/cache"
	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/database"
	"github.com/irfndi/etfflow-go/internal/datasource"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/services"
)

// App holds every long-lived component of the process.
type App struct {
	Config      *config.Config
	Logger      *logrus.Logger
	Metrics     *metrics.Registry
	Redis       *database.RedisClient
	FlowCache   *cache.RedisFlowCache
	FlowClient  *datasource.FlowClient
	PriceClient *datasource.PriceClient
	Flows       *services.FlowService
	Prices      *services.PriceService
	Correlation *services.CorrelationService
	Analytics   *services.AnalyticsService
	Alerts      *services.AlertService
	Refresher   *services.Refresher
}

// New builds the service graph. A Redis outage disables the flow cache
// instead of failing startup.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	var flowCache services.FlowCache
	if cfg.Cache.Enabled {
		redisClient, err := database.NewRedisConnection(ctx, cfg.Redis, logging.Component(logger, "redis"))
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis - continuing without cache")
		} else {
			a.Redis = redisClient
			a.FlowCache = cache.NewRedisFlowCache(redisClient.Client, cfg.Cache.GetTTL(), logger)
			flowCache = a.FlowCache
		}
	}

	a.FlowClient = datasource.NewFlowClient(&cfg.FlowAPI, logging.Component(logger, "sosovalue"))
	a.PriceClient = datasource.NewPriceClient(&cfg.Market, logging.Component(logger, "coingecko"))

	a.Flows = services.NewFlowService(a.FlowClient, flowCache, cfg, logger, a.Metrics)
	a.Prices = services.NewPriceService(logger, a.Metrics,
		services.NewRemotePriceSource(a.PriceClient),
		services.NewEmbeddedPriceSource(),
		services.NewSyntheticPriceSource(cfg.Correlation.SynthSeed),
	)

	engine := correlation.NewEngine(services.CorrelationParams(cfg.Correlation))
	a.Correlation = services.NewCorrelationService(engine, a.Prices, logger, a.Metrics)
	a.Analytics = services.NewAnalyticsService(cfg.Dashboard, cfg.Alerts)

	a.Alerts = services.NewAlertService(cfg.Alerts, services.NewNotifier(cfg.Telegram, logger), logger, a.Metrics)

	// rules stay editable while alerting is off; they are just never evaluated
	var refreshAlerts *services.AlertService
	if cfg.Alerts.Enabled {
		refreshAlerts = a.Alerts
	}
	a.Refresher = services.NewRefresher(a.Flows, a.Correlation, a.Analytics, refreshAlerts, cfg.Dashboard.GetRefreshInterval(), logger)

	logger.WithFields(logrus.Fields{
		"demo_mode": cfg.IsDemoMode(),
		"cache":     a.Redis != nil,
		"alerts":    cfg.Alerts.Enabled,
	}).Info("Application initialized")

	return a, nil
}

// RouteDependencies exposes the services to the HTTP layer.
func (a *App) RouteDependencies() api.Dependencies {
	deps := api.Dependencies{
		Snapshots: a.Refresher,
		Analytics: a.Analytics,
		Alerts:    a.Alerts,
		Metrics:   a.Metrics,
		PageSize:  a.Config.Dashboard.PageSize,
		Logger:    a.Logger,
		Breakers: map[string]handlers.BreakerReporter{
			"sosovalue": a.FlowClient,
			"coingecko": a.PriceClient,
		},

		AllowedOrigins: a.Config.Server.AllowedOrigins,
	}
	if a.Redis != nil {
		deps.Redis = a.Redis
	}
	if a.FlowCache != nil {
		deps.Cache = a.FlowCache
	}
	return deps
}

// Close stops the refresher and releases connections.
func (a *App) Close() {
	a.Refresher.Stop()
	a.Redis.Close()
}

var _ handlers.SnapshotProvider = (*services.Refresher)(nil)
