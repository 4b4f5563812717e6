package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/models"
)

const historicalInflowPath = "/openapi/v2/etf/historicalInflowChart"

// FlowClient fetches daily spot BTC ETF flows from SoSoValue.
type FlowClient struct {
	http    *httpClient
	apiKey  string
	etfType string
}

// NewFlowClient creates a SoSoValue client.
//
// Parameters:
//
//	cfg: flow API configuration.
//	logger: logger for transport events, may be nil.
//
// Returns:
//
//	*FlowClient: Initialized client.
func NewFlowClient(cfg *config.FlowAPIConfig, logger logrus.FieldLogger) *FlowClient {
	etfType := cfg.ETFType
	if etfType == "" {
		etfType = "us-btc-spot"
	}
	return &FlowClient{
		http:    newHTTPClient("sosovalue", cfg.TransportConfig, logger),
		apiKey:  cfg.APIKey,
		etfType: etfType,
	}
}

// Configured reports whether an API key is set.
func (c *FlowClient) Configured() bool {
	return config.FlowAPIConfig{APIKey: c.apiKey}.Configured()
}

// BreakerState reports the SoSoValue circuit breaker state.
func (c *FlowClient) BreakerState() string {
	return c.http.BreakerState()
}

// FetchFlows retrieves the full historical inflow chart.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	models.FlowRecords: Usable rows, in upstream order.
//	error: Wraps ErrDataUnavailable on any failure.
func (c *FlowClient) FetchFlows(ctx context.Context) (models.FlowRecords, error) {
	if !c.Configured() {
		return nil, unavailable(errors.New("flow API key not configured"))
	}

	var resp flowResponse
	headers := map[string]string{"x-soso-api-key": c.apiKey}
	err := c.http.makeRequest(ctx, http.MethodPost, historicalInflowPath, nil, headers, flowRequest{Type: c.etfType}, &resp)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to fetch ETF flows: %w", err))
	}

	if resp.Code != 0 {
		return nil, unavailable(fmt.Errorf("SoSoValue API error (code %d): %s", resp.Code, resp.Msg))
	}
	if resp.Data == nil {
		return nil, unavailable(errors.New("SoSoValue response has no data"))
	}

	records := make(models.FlowRecords, 0, len(resp.Data))
	skipped := 0
	for _, p := range resp.Data {
		date, err := models.ParseDate(p.Date)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, models.FlowRecord{
			Date:             date,
			TotalNetInflow:   p.TotalNetInflow,
			TotalValueTraded: p.TotalValueTraded,
			TotalNetAssets:   p.TotalNetAssets,
			CumNetInflow:     p.CumNetInflow,
		})
	}

	if skipped > 0 {
		c.http.logger.WithField("skipped", skipped).Warn("Skipped flow rows with unparsable dates")
	}
	if len(records) < MinRecords {
		return nil, unavailable(fmt.Errorf("only %d usable flow records, need %d", len(records), MinRecords))
	}
	return records, nil
}
