package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/cache"
	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/datasource"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/synth"
)

// FlowFetcher is the remote ETF flow provider.
type FlowFetcher interface {
	Configured() bool
	FetchFlows(ctx context.Context) (models.FlowRecords, error)
}

// FlowCache stores successfully fetched flow tables.
type FlowCache interface {
	Get(ctx context.Context, key string) (*cache.FlowCacheEntry, bool)
	Set(ctx context.Context, key string, records models.FlowRecords, source models.DataSource)
}

// FlowService loads the ETF flow table: cache, then the remote API, then
// synthesized demo data.
type FlowService struct {
	fetcher  FlowFetcher
	cache    FlowCache
	cacheKey string
	demo     config.DemoConfig
	logger   *logrus.Entry
	metrics  *metrics.Registry
	now      func() time.Time
}

// NewFlowService creates a flow service. fetcher and flowCache may be nil.
func NewFlowService(fetcher FlowFetcher, flowCache FlowCache, cfg *config.Config, logger logrus.FieldLogger, registry *metrics.Registry) *FlowService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	key := cfg.Cache.Key
	if key == "" {
		key = "etf:flows"
	}
	return &FlowService{
		fetcher:  fetcher,
		cache:    flowCache,
		cacheKey: key,
		demo:     cfg.Demo,
		logger:   logger.WithField("service", "flows"),
		metrics:  registry,
		now:      time.Now,
	}
}

// Load returns the flow table sorted most recent first. force skips the
// cache. It never fails: any API problem degrades to demo data.
func (s *FlowService) Load(ctx context.Context, force bool) models.FlowDataset {
	dataset := s.load(ctx, force)
	dataset.Records = dataset.Records.SortDesc()
	dataset.FetchedAt = s.now()
	s.metrics.ObserveDataset(string(dataset.Source), len(dataset.Records))
	return dataset
}

func (s *FlowService) load(ctx context.Context, force bool) models.FlowDataset {
	if !force && s.cache != nil {
		entry, hit := s.cache.Get(ctx, s.cacheKey)
		s.metrics.ObserveCache(hit)
		if hit && len(entry.Records) > 0 {
			return models.FlowDataset{
				Records: entry.Records,
				Source:  models.SourceCache,
				Message: fmt.Sprintf("Cached data (%d records, cached %s)", len(entry.Records), entry.CachedAt.UTC().Format(time.RFC3339)),
			}
		}
	}

	if s.demo.Enabled || s.fetcher == nil || !s.fetcher.Configured() {
		return s.demoDataset(models.SourceDemo, "Demo mode: synthetic ETF flows")
	}

	started := time.Now()
	records, err := s.fetcher.FetchFlows(ctx)
	s.metrics.ObserveFetch("sosovalue", started, err)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch ETF flows, falling back to demo data")
		return s.demoDataset(models.SourceFallback, fallbackMessage(err))
	}

	if s.cache != nil {
		s.cache.Set(ctx, s.cacheKey, records, models.SourceAPI)
	}

	s.logger.WithField("records", len(records)).Info("Loaded ETF flows from API")
	return models.FlowDataset{
		Records: records,
		Source:  models.SourceAPI,
		Message: fmt.Sprintf("Live API (%d records)", len(records)),
	}
}

func (s *FlowService) demoDataset(source models.DataSource, message string) models.FlowDataset {
	points := s.demo.DataPoints
	if points <= 0 || points > config.MaxDemoDataPoints {
		points = config.MaxDemoDataPoints
	}

	params := synth.DefaultDemoParams()
	if s.demo.InflowMax > s.demo.InflowMin {
		params.InflowMin, params.InflowMax = s.demo.InflowMin, s.demo.InflowMax
	}
	if s.demo.Volatility > 0 {
		params.Volatility = s.demo.Volatility
	}
	if s.demo.TrendFactor > 0 {
		params.TrendFactor = s.demo.TrendFactor
	}

	gen := synth.NewRandom()
	if s.demo.Seed != 0 {
		gen = synth.New(s.demo.Seed)
	}

	return models.FlowDataset{
		Records: gen.DemoFlows(points, s.now(), params),
		Source:  source,
		Message: message,
	}
}

func fallbackMessage(err error) string {
	var statusErr *datasource.StatusError
	switch {
	case errors.As(err, &statusErr) && (statusErr.StatusCode == 401 || statusErr.StatusCode == 403):
		return "API key rejected, showing demo data"
	case errors.As(err, &statusErr) && statusErr.StatusCode == 429:
		return "API rate limit reached, showing demo data"
	case errors.Is(err, context.DeadlineExceeded):
		return "API timed out, showing demo data"
	default:
		return "API unavailable, showing demo data"
	}
}
