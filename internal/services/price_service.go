package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/datasource"
	"github.com/irfndi/etfflow-go/internal/metrics"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/synth"
)

// PriceSourceNone is reported when no source produced any price.
const PriceSourceNone = "none"

// maxSyntheticDays bounds the synthetic walk span.
const maxSyntheticDays = 3660

// PriceSource yields a daily BTC price series covering the given flow rows.
type PriceSource interface {
	Name() string
	Prices(ctx context.Context, flows models.FlowRecords) (models.Series, error)
}

// PriceFetcher is the remote price provider.
type PriceFetcher interface {
	FetchRecentPrices(ctx context.Context, now time.Time, reference map[string]struct{}) (models.Series, error)
}

type remotePriceSource struct {
	client PriceFetcher
	now    func() time.Time
}

// NewRemotePriceSource wraps a CoinGecko client restricted to flow dates.
func NewRemotePriceSource(client PriceFetcher) PriceSource {
	return &remotePriceSource{client: client, now: time.Now}
}

func (s *remotePriceSource) Name() string { return "coingecko" }

func (s *remotePriceSource) Prices(ctx context.Context, flows models.FlowRecords) (models.Series, error) {
	return s.client.FetchRecentPrices(ctx, s.now(), flows.DateSet())
}

type syntheticPriceSource struct {
	seed uint64
}

// NewSyntheticPriceSource returns a seeded price walk over the flow dates.
// A zero seed derives the seed from the latest flow date, so the same table
// always yields the same prices.
func NewSyntheticPriceSource(seed uint64) PriceSource {
	return &syntheticPriceSource{seed: seed}
}

func (s *syntheticPriceSource) Name() string { return "synthetic" }

func (s *syntheticPriceSource) Prices(_ context.Context, flows models.FlowRecords) (models.Series, error) {
	first, last, ok := flows.Span()
	if !ok {
		return nil, errors.New("no flow dates to synthesize prices for")
	}

	days := int(last.Sub(first).Hours()/24) + 1
	if days > maxSyntheticDays {
		days = maxSyntheticDays
	}

	seed := s.seed
	if seed == 0 {
		seed = uint64(last.Unix())
	}

	walk := synth.New(seed).Walk(days, last, synth.PriceWalkParams())
	dates := flows.DateSet()
	out := make(models.Series, 0, len(dates))
	for _, r := range walk {
		if _, ok := dates[models.DateKey(r.Date)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type embeddedPriceSource struct {
	now func() time.Time
}

// NewEmbeddedPriceSource uses the BTC price carried by each flow row and
// estimates the price for rows without one. It is unavailable unless at
// least datasource.MinRecords rows carry a real price.
func NewEmbeddedPriceSource() PriceSource {
	return &embeddedPriceSource{now: time.Now}
}

func (s *embeddedPriceSource) Name() string { return "embedded" }

func (s *embeddedPriceSource) Prices(_ context.Context, flows models.FlowRecords) (models.Series, error) {
	carried := 0
	for _, r := range flows {
		if r.BTCPrice.IsPositive() {
			carried++
		}
	}
	if carried < datasource.MinRecords {
		return nil, fmt.Errorf("%w: %d flow rows carry a BTC price, need %d", datasource.ErrDataUnavailable, carried, datasource.MinRecords)
	}

	now := s.now()
	out := make(models.Series, 0, len(flows))
	for _, r := range flows {
		price := r.BTCPrice.InexactFloat64()
		if price <= 0 {
			price = synth.EstimatePrice(r.Date, now)
		}
		out = append(out, models.DailyRecord{Date: r.Date, Value: price})
	}
	return out.Sort(), nil
}

// PriceService resolves a BTC price series through an ordered chain of
// sources; the first one yielding enough points wins.
type PriceService struct {
	sources    []PriceSource
	minRecords int
	logger     *logrus.Entry
	metrics    *metrics.Registry
}

// NewPriceService creates a price service trying sources in order.
func NewPriceService(logger logrus.FieldLogger, registry *metrics.Registry, sources ...PriceSource) *PriceService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PriceService{
		sources:    sources,
		minRecords: datasource.MinRecords,
		logger:     logger.WithField("service", "prices"),
		metrics:    registry,
	}
}

// PriceSeries returns the first adequate price series and the name of the
// source that produced it. It never fails: if no source is adequate the
// longest partial series is returned, or an empty one with PriceSourceNone.
func (s *PriceService) PriceSeries(ctx context.Context, flows models.FlowRecords) (models.Series, string) {
	series, source, err := s.firstAvailable(ctx, flows)
	if err != nil {
		s.logger.WithError(err).Warn("No price source produced enough data")
	}
	return series, source
}

func (s *PriceService) firstAvailable(ctx context.Context, flows models.FlowRecords) (models.Series, string, error) {
	var (
		best     models.Series
		bestName = PriceSourceNone
		errs     []error
	)

	for _, src := range s.sources {
		started := time.Now()
		series, err := src.Prices(ctx, flows)
		if err == nil && len(series) < s.minRecords {
			err = fmt.Errorf("%w: %d price points, need %d", datasource.ErrDataUnavailable, len(series), s.minRecords)
		}
		s.metrics.ObserveFetch(src.Name(), started, err)

		if err == nil {
			s.logger.WithFields(logrus.Fields{
				"source": src.Name(),
				"points": len(series),
			}).Debug("Resolved BTC price series")
			return series, src.Name(), nil
		}

		s.logger.WithError(err).WithField("source", src.Name()).Info("Price source unavailable, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		if len(series) > len(best) {
			best, bestName = series, src.Name()
		}
	}

	if best == nil {
		best = models.Series{}
	}
	return best, bestName, errors.Join(errs...)
}
