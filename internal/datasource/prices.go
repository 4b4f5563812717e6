package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/models"
)

// PriceClient fetches historical BTC prices from CoinGecko.
type PriceClient struct {
	http         *httpClient
	coinID       string
	vsCurrency   string
	lookbackDays int
}

// NewPriceClient creates a CoinGecko client.
func NewPriceClient(cfg *config.MarketConfig, logger logrus.FieldLogger) *PriceClient {
	coin, vs, lookback := cfg.CoinID, cfg.VsCurrency, cfg.LookbackDays
	if coin == "" {
		coin = "bitcoin"
	}
	if vs == "" {
		vs = "usd"
	}
	if lookback <= 0 {
		lookback = 90
	}
	return &PriceClient{
		http:         newHTTPClient("coingecko", cfg.TransportConfig, logger),
		coinID:       coin,
		vsCurrency:   vs,
		lookbackDays: lookback,
	}
}

// BreakerState reports the CoinGecko circuit breaker state.
func (c *PriceClient) BreakerState() string {
	return c.http.BreakerState()
}

// FetchRecentPrices fetches the configured lookback window ending at now.
func (c *PriceClient) FetchRecentPrices(ctx context.Context, now time.Time, reference map[string]struct{}) (models.Series, error) {
	return c.FetchDailyPrices(ctx, now.AddDate(0, 0, -c.lookbackDays), now, reference)
}

// FetchDailyPrices retrieves prices between from and to and reduces them to
// one record per UTC day, keeping the last sample of each day.
//
// Parameters:
//
//	ctx: Context.
//	from, to: Inclusive time range.
//	reference: Day keys to keep; nil keeps every day.
//
// Returns:
//
//	models.Series: Ascending daily prices.
//	error: Wraps ErrDataUnavailable on any failure.
func (c *PriceClient) FetchDailyPrices(ctx context.Context, from, to time.Time, reference map[string]struct{}) (models.Series, error) {
	if !from.Before(to) {
		return nil, unavailable(fmt.Errorf("invalid price range %s..%s", models.DateKey(from), models.DateKey(to)))
	}

	query := url.Values{}
	query.Set("vs_currency", c.vsCurrency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))

	path := fmt.Sprintf("/api/v3/coins/%s/market_chart/range", url.PathEscape(c.coinID))
	var resp marketChartResponse
	if err := c.http.makeRequest(ctx, http.MethodGet, path, query, nil, nil, &resp); err != nil {
		return nil, unavailable(fmt.Errorf("failed to fetch BTC prices: %w", err))
	}
	if resp.Prices == nil {
		return nil, unavailable(errors.New("CoinGecko response has no prices"))
	}

	type sample struct {
		at    int64
		price float64
	}
	latest := make(map[string]sample, len(resp.Prices))
	for _, p := range resp.Prices {
		if len(p) < 2 || p[1] <= 0 {
			continue
		}
		ms := int64(p[0])
		key := models.DateKey(time.UnixMilli(ms))
		if reference != nil {
			if _, ok := reference[key]; !ok {
				continue
			}
		}
		if prev, ok := latest[key]; !ok || ms >= prev.at {
			latest[key] = sample{at: ms, price: p[1]}
		}
	}

	series := make(models.Series, 0, len(latest))
	for _, s := range latest {
		series = append(series, models.DailyRecord{Date: models.Day(time.UnixMilli(s.at)), Value: s.price})
	}
	series = series.Sort()

	if len(series) < MinRecords {
		return nil, unavailable(fmt.Errorf("only %d usable price days, need %d", len(series), MinRecords))
	}
	return series, nil
}
