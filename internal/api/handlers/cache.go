package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/etfflow-go/internal/middleware"
)

// FlowCacheManager is the flow cache as seen by the admin endpoints.
type FlowCacheManager interface {
	CacheStatsProvider
	Clear(ctx context.Context) error
}

// CacheHandler exposes flow cache statistics and invalidation.
type CacheHandler struct {
	cache FlowCacheManager
}

// NewCacheHandler creates a cache handler. cache may be nil when caching is
// disabled.
func NewCacheHandler(cache FlowCacheManager) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// GetStats returns hit, miss and set counters.
func (h *CacheHandler) GetStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cache disabled"})
		return
	}
	stats := h.cache.GetStats()
	c.JSON(http.StatusOK, CacheHealth{FlowCacheStats: stats, HitRate: stats.HitRate()})
}

// Clear drops every cached flow table so the next refresh hits the API.
func (h *CacheHandler) Clear(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cache disabled"})
		return
	}
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		middleware.RecordError(c, err, "cache clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "failed to clear cache",
			"request_id": middleware.GetRequestID(c),
		})
		return
	}
	c.Status(http.StatusNoContent)
}
