package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/irfndi/etfflow-go/internal/cache"
)

var startTime = time.Now()

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CacheStatsProvider reports flow cache counters.
type CacheStatsProvider interface {
	GetStats() cache.FlowCacheStats
}

// BreakerReporter reports a provider circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

type HealthHandler struct {
	redis     HealthChecker
	snapshots SnapshotProvider
	version   string
	cache     CacheStatsProvider
	breakers  map[string]BreakerReporter
}

// CacheHealth is the flow cache section of the health response.
type CacheHealth struct {
	cache.FlowCacheStats
	HitRate float64 `json:"hit_rate"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Data      string            `json:"data"`
	Breakers  map[string]string `json:"breakers,omitempty"`
	Cache     *CacheHealth      `json:"cache,omitempty"`
	Memory    string            `json:"memory,omitempty"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler creates a health handler. redis may be nil when the
// cache is disabled.
func NewHealthHandler(redis HealthChecker, snapshots SnapshotProvider, version string) *HealthHandler {
	return &HealthHandler{
		redis:     redis,
		snapshots: snapshots,
		version:   version,
	}
}

// WithCache adds flow cache counters to the health response.
func (h *HealthHandler) WithCache(stats CacheStatsProvider) *HealthHandler {
	h.cache = stats
	return h
}

// WithBreakers adds provider circuit breaker states, keyed by provider name.
// An open breaker does not degrade the service; demo data covers it.
func (h *HealthHandler) WithBreakers(breakers map[string]BreakerReporter) *HealthHandler {
	h.breakers = breakers
	return h
}

// HealthCheck reports dependency status. Only a failing Redis marks the
// service degraded; missing flow data is reported but still healthy since
// demo data is always available.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)
	status := "healthy"

	if h.redis == nil {
		services["redis"] = "disabled"
	} else if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
		services["redis"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		services["redis"] = "healthy"
	}

	data := "pending"
	if h.snapshots != nil {
		if snap := h.snapshots.Latest(); snap != nil {
			data = string(snap.Dataset.Source)
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Data:      data,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	}
	if h.cache != nil {
		stats := h.cache.GetStats()
		response.Cache = &CacheHealth{FlowCacheStats: stats, HitRate: stats.HitRate()}
	}
	if len(h.breakers) > 0 {
		response.Breakers = make(map[string]string, len(h.breakers))
		for name, b := range h.breakers {
			response.Breakers[name] = b.BreakerState()
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		response.Memory = fmt.Sprintf("%.1f%% used", vm.UsedPercent)
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

// LivenessCheck only proves the process answers.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
