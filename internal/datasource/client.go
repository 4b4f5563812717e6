// Package datasource fetches ETF flows and BTC prices from upstream HTTP
// providers. Clients never retry; callers fall back to other sources.
package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/irfndi/etfflow-go/internal/config"
)

// ErrDataUnavailable wraps every failure to obtain usable upstream data.
var ErrDataUnavailable = errors.New("data unavailable")

// MinRecords is the fewest usable records a fetch must yield to succeed.
const MinRecords = 10

const userAgent = "ETFFlow-Go/1.0"

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 16 << 20

// httpClient is the transport shared by provider clients: one token bucket
// and one circuit breaker per upstream host.
type httpClient struct {
	HTTPClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Entry
}

func newHTTPClient(name string, cfg config.TransportConfig, logger logrus.FieldLogger) *httpClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := uint32(3)
	if cfg.BreakerFailures > 0 {
		failures = uint32(cfg.BreakerFailures)
	}

	entry := logger.WithField("provider", name)
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  cfg.GetBreakerTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			entry.WithFields(logrus.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &httpClient{
		HTTPClient: &http.Client{Timeout: cfg.GetTimeout()},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     entry,
	}
}

// BreakerState reports the current circuit breaker state.
func (c *httpClient) BreakerState() string {
	return c.breaker.State().String()
}

// makeRequest sends one JSON request through the rate limiter and circuit
// breaker and decodes a 2xx response into result.
func (c *httpClient) makeRequest(ctx context.Context, method, path string, query url.Values, headers map[string]string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, path, query, headers, body, result)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s circuit breaker open: %w", c.breaker.Name(), err)
	}
	return err
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 256)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// unavailable wraps cause so that errors.Is(err, ErrDataUnavailable) holds.
func unavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrDataUnavailable, cause)
}
