package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/middleware"
	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/reporting"
	"github.com/irfndi/etfflow-go/internal/services"
)

const maxPageSize = 500

// refreshTimeout bounds a refresh started by a request. The refresh is
// detached from the request so a client disconnect cannot publish a
// degraded snapshot.
const refreshTimeout = 2 * time.Minute

// SnapshotProvider serves the computed dashboard state.
type SnapshotProvider interface {
	Latest() *services.Snapshot
	Current(ctx context.Context) (*services.Snapshot, error)
	Refresh(ctx context.Context, force bool) (*services.Snapshot, error)
}

// DashboardHandler serves the flow table and everything derived from it.
type DashboardHandler struct {
	snapshots SnapshotProvider
	analytics *services.AnalyticsService
	pageSize  int
	logger    *logrus.Entry
	now       func() time.Time
}

// FlowsResponse is one page of the flow table, most recent first.
type FlowsResponse struct {
	Records    models.FlowRecords `json:"records"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
	Query      string             `json:"query,omitempty"`
	Source     models.DataSource  `json:"source"`
	Message    string             `json:"message"`
}

// CorrelationResponse is the correlation result with its display reading.
type CorrelationResponse struct {
	models.CorrelationResult
	Interpretation string `json:"interpretation"`
}

// SummaryResponse is the dashboard header: provenance, headline numbers
// and the current correlation.
type SummaryResponse struct {
	Source      models.DataSource    `json:"source"`
	Message     string               `json:"message"`
	Records     int                  `json:"records"`
	FetchedAt   time.Time            `json:"fetched_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Statistics  *services.Statistics `json:"statistics,omitempty"`
	Correlation CorrelationResponse  `json:"correlation"`
	Alerts      []services.Alert     `json:"alerts"`
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(snapshots SnapshotProvider, analytics *services.AnalyticsService, pageSize int, logger logrus.FieldLogger) *DashboardHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 50
	}
	return &DashboardHandler{
		snapshots: snapshots,
		analytics: analytics,
		pageSize:  pageSize,
		logger:    logger.WithField("handler", "dashboard"),
		now:       time.Now,
	}
}

func (h *DashboardHandler) snapshot(c *gin.Context) (*services.Snapshot, bool) {
	ctx, cancel := detached(c)
	defer cancel()
	snap, err := h.snapshots.Current(ctx)
	if snap == nil {
		if err == nil {
			err = errors.New("no snapshot available")
		}
		middleware.RecordError(c, err, "snapshot unavailable")
		h.logger.WithError(err).Error("Dashboard snapshot unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard data is not available yet"})
		return nil, false
	}
	return snap, true
}

// GetSummary returns the dashboard header.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Source:      snap.Dataset.Source,
		Message:     snap.Dataset.Message,
		Records:     len(snap.Dataset.Records),
		FetchedAt:   snap.Dataset.FetchedAt,
		UpdatedAt:   snap.UpdatedAt,
		Statistics:  snap.Statistics,
		Correlation: correlationResponse(snap.Correlation, false),
		Alerts:      snap.Alerts,
	})
}

// GetFlows returns one page of the filtered flow table.
func (h *DashboardHandler) GetFlows(c *gin.Context) {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := positiveQuery(c, "limit", h.pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	query := c.Query("q")
	records := h.analytics.Filter(snap.Dataset.Records, query)
	total := len(records)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	middleware.AddSpanAttribute(c, "flows.total", total)
	c.JSON(http.StatusOK, FlowsResponse{
		Records:    records[start:end],
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Query:      query,
		Source:     snap.Dataset.Source,
		Message:    snap.Dataset.Message,
	})
}

// ExportFlows downloads the filtered flow table as CSV.
func (h *DashboardHandler) ExportFlows(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	records := h.analytics.Filter(snap.Dataset.Records, c.Query("q"))

	c.Header("Content-Disposition", "attachment; filename="+reporting.ExportFilename(h.now()))
	c.Header("Content-Type", reporting.ContentType)
	c.Status(http.StatusOK)
	if err := reporting.WriteFlowsCSV(c.Writer, records); err != nil {
		middleware.RecordError(c, err, "csv export failed")
		h.logger.WithError(err).Error("Failed to export flows")
	}
}

// GetStatistics returns the latest value and daily change of each metric.
func (h *DashboardHandler) GetStatistics(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if snap.Statistics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrNoData.Error()})
		return
	}
	c.JSON(http.StatusOK, snap.Statistics)
}

// GetCorrelation returns the current correlation. ?detail=true includes the
// aligned series and change series.
func (h *DashboardHandler) GetCorrelation(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	detail, _ := strconv.ParseBool(c.Query("detail"))
	c.JSON(http.StatusOK, correlationResponse(snap.Correlation, detail))
}

// GetMovements returns the largest day-over-day inflow changes.
func (h *DashboardHandler) GetMovements(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	movements := h.analytics.SignificantMovements(snap.Dataset.Records)
	c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

// GetAlerts returns the alerts raised by the latest refresh.
func (h *DashboardHandler) GetAlerts(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": snap.Alerts, "count": len(snap.Alerts)})
}

// GetAnalysis returns moving average, trend, volatility and outliers.
func (h *DashboardHandler) GetAnalysis(c *gin.Context) {
	period, err := positiveQuery(c, "period", h.analytics.TrendPeriod())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.analytics.Analyze(snap.Dataset.Records, period))
}

// Refresh reloads the flow table bypassing the cache.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	ctx, cancel := detached(c)
	defer cancel()
	snap, err := h.snapshots.Refresh(ctx, true)
	if errors.Is(err, services.ErrRefreshInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		middleware.RecordError(c, err, "refresh failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":      snap.Dataset.Source,
		"message":     snap.Dataset.Message,
		"records":     len(snap.Dataset.Records),
		"updated_at":  snap.UpdatedAt,
		"correlation": correlationResponse(snap.Correlation, false),
	})
}

func detached(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), refreshTimeout)
}

func correlationResponse(result models.CorrelationResult, detail bool) CorrelationResponse {
	if !detail {
		result.Pair = nil
		result.InflowChanges = nil
		result.PriceChanges = nil
	}
	return CorrelationResponse{
		CorrelationResult: result,
		Interpretation:    result.Strength.Interpretation(),
	}
}

func positiveQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return v, nil
}
