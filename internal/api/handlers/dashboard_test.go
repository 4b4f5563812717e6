package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/etfflow-go/internal/config"
	"github.com/irfndi/etfflow-go/internal/logging"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockSnapshotProvider struct {
	mock.Mock
}

func (m *MockSnapshotProvider) Latest() *services.Snapshot {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*services.Snapshot)
}

func (m *MockSnapshotProvider) Current(ctx context.Context) (*services.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Snapshot), args.Error(1)
}

func (m *MockSnapshotProvider) Refresh(ctx context.Context, force bool) (*services.Snapshot, error) {
	args := m.Called(ctx, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Snapshot), args.Error(1)
}

var latestDay = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

// testSnapshot has n rows, most recent first, with inflow i million on day i.
func testSnapshot(n int) *services.Snapshot {
	records := make(models.FlowRecords, 0, n)
	for i := n; i >= 1; i-- {
		records = append(records, models.FlowRecord{
			Date:             latestDay.AddDate(0, 0, i-n),
			TotalNetInflow:   decimal.NewFromInt(int64(i) * 1_000_000),
			TotalValueTraded: decimal.NewFromInt(1_000_000_000),
			TotalNetAssets:   decimal.NewFromInt(50_000_000_000),
			CumNetInflow:     decimal.NewFromInt(15_000_000_000),
			BTCPrice:         decimal.NewFromInt(60_000),
		})
	}
	pair := &models.AlignedPair{Dates: []time.Time{latestDay}}
	return &services.Snapshot{
		Dataset: models.FlowDataset{Records: records, Source: models.SourceDemo, Message: "Demo mode"},
		Correlation: models.CorrelationResult{
			Coefficient:   0.82,
			Strength:      models.StrengthVeryStrong,
			Direction:     models.DirectionPositive,
			Method:        models.MethodPearson,
			Samples:       29,
			Pair:          pair,
			InflowChanges: []float64{1, 2},
			PriceChanges:  []float64{1, 2},
		},
		Alerts:    []services.Alert{{ID: "a1", Type: services.AlertLargeInflow}},
		UpdatedAt: latestDay,
	}
}

func newTestDashboard(provider SnapshotProvider) *gin.Engine {
	analytics := services.NewAnalyticsService(
		config.DashboardConfig{PageSize: 10, TrendPeriod: 5, MovingAverage: 3},
		config.AlertsConfig{SignificantMove: 100_000_000, MaxMovements: 10},
	)
	h := NewDashboardHandler(provider, analytics, 10, logging.Discard())
	router := gin.New()
	router.GET("/dashboard", h.GetSummary)
	router.GET("/flows", h.GetFlows)
	router.GET("/flows/export", h.ExportFlows)
	router.GET("/movements", h.GetMovements)
	router.GET("/statistics", h.GetStatistics)
	router.GET("/correlation", h.GetCorrelation)
	router.GET("/alerts", h.GetAlerts)
	router.GET("/analysis", h.GetAnalysis)
	router.POST("/refresh", h.Refresh)
	return router
}

func doRequest(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestDashboardHandler_GetFlowsPagination(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(25), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/flows")
	require.Equal(t, http.StatusOK, w.Code)
	var resp FlowsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Records, 10)
	assert.True(t, resp.Records[0].Date.Equal(latestDay))
	assert.Equal(t, models.SourceDemo, resp.Source)

	w = doRequest(router, http.MethodGet, "/flows?page=3")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 5)

	w = doRequest(router, http.MethodGet, "/flows?page=9&limit=5")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Records)
	assert.Equal(t, 5, resp.TotalPages)
}

func TestDashboardHandler_GetFlowsSearch(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(25), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/flows?q=2024-06-28")
	require.Equal(t, http.StatusOK, w.Code)
	var resp FlowsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "2024-06-28", resp.Query)
}

func TestDashboardHandler_GetFlowsBadParams(t *testing.T) {
	router := newTestDashboard(new(MockSnapshotProvider))

	for _, path := range []string{"/flows?page=0", "/flows?page=x", "/flows?limit=-3", "/analysis?period=abc"} {
		w := doRequest(router, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDashboardHandler_SnapshotUnavailable(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(nil, errors.New("boom"))
	router := newTestDashboard(provider)

	for _, path := range []string{"/dashboard", "/flows", "/statistics", "/correlation", "/alerts"} {
		w := doRequest(router, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestDashboardHandler_ExportFlows(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(3), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/flows/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Regexp(t, `attachment; filename=etf_btc_\d{4}-\d{2}-\d{2}\.csv`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Net Inflow,Volume,Net Assets,Cum Inflow,BTC Price", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-06-28,3000000,"))
}

func TestDashboardHandler_GetCorrelation(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(5), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/correlation")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0.82, body["coefficient"])
	assert.Equal(t, "very-strong", body["strength"])
	assert.Equal(t, models.StrengthVeryStrong.Interpretation(), body["interpretation"])
	assert.NotContains(t, body, "pair")
	assert.NotContains(t, body, "inflow_changes")

	w = doRequest(router, http.MethodGet, "/correlation?detail=true")
	body = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "pair")
	assert.Contains(t, body, "price_changes")
}

func TestDashboardHandler_GetSummary(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(5), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Records)
	assert.Equal(t, models.SourceDemo, resp.Source)
	assert.Nil(t, resp.Correlation.Pair)
	assert.Len(t, resp.Alerts, 1)
}

func TestDashboardHandler_StatisticsMissing(t *testing.T) {
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(testSnapshot(0), nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/statistics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardHandler_MovementsAndAnalysis(t *testing.T) {
	snap := testSnapshot(12)
	snap.Dataset.Records[0].TotalNetInflow = decimal.NewFromInt(500_000_000)
	provider := new(MockSnapshotProvider)
	provider.On("Current", mock.Anything).Return(snap, nil)
	router := newTestDashboard(provider)

	w := doRequest(router, http.MethodGet, "/movements")
	require.Equal(t, http.StatusOK, w.Code)
	var movements struct {
		Movements []services.Movement `json:"movements"`
		Count     int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movements))
	require.Equal(t, 1, movements.Count)
	assert.Equal(t, services.MovementInflow, movements.Movements[0].Type)

	w = doRequest(router, http.MethodGet, "/analysis?period=3")
	require.Equal(t, http.StatusOK, w.Code)
	var analysis services.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, 3, analysis.Trend.Period)
	assert.NotEmpty(t, analysis.MovingAverage)
}

func TestDashboardHandler_Refresh(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		provider := new(MockSnapshotProvider)
		provider.On("Refresh", mock.Anything, true).Return(testSnapshot(4), nil).Once()
		w := doRequest(newTestDashboard(provider), http.MethodPost, "/refresh")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"records":4`)
		provider.AssertExpectations(t)
	})

	t.Run("in progress", func(t *testing.T) {
		provider := new(MockSnapshotProvider)
		provider.On("Refresh", mock.Anything, true).Return(testSnapshot(4), services.ErrRefreshInProgress)
		w := doRequest(newTestDashboard(provider), http.MethodPost, "/refresh")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("survives client disconnect", func(t *testing.T) {
		provider := new(MockSnapshotProvider)
		live := mock.MatchedBy(func(ctx context.Context) bool {
			_, hasDeadline := ctx.Deadline()
			return ctx.Err() == nil && hasDeadline
		})
		provider.On("Refresh", live, true).Return(testSnapshot(4), nil).Once()

		reqCtx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil).WithContext(reqCtx)
		w := httptest.NewRecorder()
		newTestDashboard(provider).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		provider.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		provider := new(MockSnapshotProvider)
		provider.On("Refresh", mock.Anything, true).Return(nil, errors.New("boom"))
		w := doRequest(newTestDashboard(provider), http.MethodPost, "/refresh")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
