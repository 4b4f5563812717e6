package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/correlation"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/telemetry"
)

// CorrelationParams converts configuration into engine tuning.
func CorrelationParams(cfg config.CorrelationConfig) correlation.Params {
	return correlation.Params{
		Window:          cfg.Window,
		MinPairedPoints: cfg.MinPairedPoints,
		Thresholds: correlation.Thresholds{
			InflowOutlier: cfg.InflowOutlier,
			PriceOutlier:  cfg.PriceOutlier,
			MinSamples:    cfg.MinSamples,
		},
		Breakpoints: correlation.Breakpoints{
			VeryStrong: cfg.VeryStrong,
			Strong:     cfg.Strong,
			Moderate:   cfg.Moderate,
			Weak:       cfg.Weak,
		},
	}
}

// CorrelationService runs the full pipeline for a loaded flow table.
type CorrelationService struct {
	engine  *correlation.Engine
	prices  *PriceService
	logger  *logrus.Entry
	metrics *metrics.Registry
	now     func() time.Time
}

// NewCorrelationService creates a correlation service.
func NewCorrelationService(engine *correlation.Engine, prices *PriceService, logger logrus.FieldLogger, registry *metrics.Registry) *CorrelationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CorrelationService{
		engine:  engine,
		prices:  prices,
		logger:  logger.WithField("service", "correlation"),
		metrics: registry,
		now:     time.Now,
	}
}

// Compute correlates daily inflows with BTC prices. It always returns a result.
func (s *CorrelationService) Compute(ctx context.Context, records models.FlowRecords) models.CorrelationResult {
	ctx, span := telemetry.Tracer().Start(ctx, "correlation.compute")
	defer span.End()

	started := time.Now()
	flows := records.Series(models.MetricInflow)
	prices, source := s.prices.PriceSeries(ctx, records)

	result := s.engine.Analyze(flows, prices)
	result.PriceSource = source
	result.CalculatedAt = s.now()

	span.SetAttributes(
		attribute.Int("correlation.flows", flows.Len()),
		attribute.Int("correlation.prices", prices.Len()),
		attribute.String("correlation.price_source", source),
		attribute.String("correlation.method", string(result.Method)),
		attribute.Float64("correlation.coefficient", result.Coefficient),
		attribute.Int("correlation.samples", result.Samples),
	)
	s.metrics.ObservePipeline(string(result.Method), result.Coefficient, started)

	entry := s.logger.WithFields(logrus.Fields{
		"coefficient":  result.Coefficient,
		"strength":     result.Strength,
		"direction":    result.Direction,
		"method":       result.Method,
		"samples":      result.Samples,
		"price_source": source,
	})
	if result.Method == models.MethodEstimated {
		entry.WithField("reason", result.Reason).Warn("Correlation estimated from flow trend")
	} else {
		entry.Info("Correlation computed")
	}

	return result
}
