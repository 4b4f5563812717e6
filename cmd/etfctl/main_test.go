package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/etfflow-go/internal/models"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(market.Close)

	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MARKET_BASE_URL", market.URL)
	t.Setenv("MARKET_RATE_LIMIT", "0")
	t.Setenv("DEMO_DATA_POINTS", "50")
	t.Setenv("DEMO_SEED", "9")
	t.Setenv("ALERTS_ENABLED", "false")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCorrelateCmd(t *testing.T) {
	setTestEnv(t)

	out, _, err := execute(t, "correlate")
	require.NoError(t, err)
	assert.Contains(t, out, "Data source:   demo (50 records)")
	assert.Contains(t, out, "Coefficient:")
	assert.Contains(t, out, "prices from embedded")
}

func TestCorrelateCmd_JSON(t *testing.T) {
	setTestEnv(t)

	out, _, err := execute(t, "correlate", "--json")
	require.NoError(t, err)

	var result models.CorrelationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.GreaterOrEqual(t, result.Coefficient, -1.0)
	assert.LessOrEqual(t, result.Coefficient, 1.0)
	assert.Equal(t, "embedded", result.PriceSource)
}

func TestExportCmd_Stdout(t *testing.T) {
	setTestEnv(t)

	out, _, err := execute(t, "export", "--output", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 51)
	assert.Equal(t, "Date,Net Inflow,Volume,Net Assets,Cum Inflow,BTC Price", lines[0])
}

func TestExportCmd_File(t *testing.T) {
	setTestEnv(t)
	path := filepath.Join(t.TempDir(), "flows.csv")

	_, errOut, err := execute(t, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Wrote 50 records")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Net Inflow"))
}

func TestStatsCmd(t *testing.T) {
	setTestEnv(t)

	out, _, err := execute(t, "stats", "--period", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo mode")
	assert.Contains(t, out, "Latest day:")
	assert.Contains(t, out, "Inflow")
	assert.Contains(t, out, "Trend (7 days):")
}

func TestStatsCmd_InvalidPeriod(t *testing.T) {
	setTestEnv(t)

	_, _, err := execute(t, "stats", "--period", "-1")
	assert.ErrorContains(t, err, "period must not be negative")
}

func TestCmd_InvalidConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("CORRELATION_WINDOW", "1")

	_, _, err := execute(t, "correlate")
	assert.ErrorContains(t, err, "failed to load configuration")
}
