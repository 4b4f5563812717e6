package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/models"
)

// FlowCacheEntry is a cached flow table with metadata.
type FlowCacheEntry struct {
	Records   models.FlowRecords `json:"records"`
	Source    models.DataSource  `json:"source"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// FlowCacheStats tracks cache performance.
type FlowCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// HitRate returns hits as a percentage of lookups.
func (s FlowCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// RedisFlowCache stores loaded flow tables in Redis. Every failure is
// logged and reported as a miss; the cache never fails its caller.
type RedisFlowCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Entry
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewRedisFlowCache creates a new Redis-based flow cache
func NewRedisFlowCache(redisClient *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *RedisFlowCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisFlowCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "flow_cache:",
		logger: logger.WithField("component", "flow_cache"),
		now:    time.Now,
	}
}

// Get returns the entry stored under key. Entries older than the TTL are
// deleted and reported as a miss.
func (c *RedisFlowCache) Get(ctx context.Context, key string) (*FlowCacheEntry, bool) {
	cacheKey := c.prefix + key

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis error reading flow cache")
		c.misses.Add(1)
		return nil, false
	}

	var entry FlowCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable flow cache entry")
		c.delete(ctx, cacheKey)
		c.misses.Add(1)
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.delete(ctx, cacheKey)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &entry, true
}

// Set stores records under key with the configured TTL.
func (c *RedisFlowCache) Set(ctx context.Context, key string, records models.FlowRecords, source models.DataSource) {
	cacheKey := c.prefix + key

	now := c.now()
	entry := FlowCacheEntry{
		Records:   records,
		Source:    source,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Error serializing flow records")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis error writing flow cache")
		return
	}

	c.sets.Add(1)
	c.logger.WithFields(logrus.Fields{
		"key":     key,
		"records": len(records),
		"ttl":     c.ttl.String(),
	}).Debug("Cached flow records")
}

// GetStats returns current cache statistics
func (c *RedisFlowCache) GetStats() FlowCacheStats {
	return FlowCacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}

// Clear removes every cached flow table.
func (c *RedisFlowCache) Clear(ctx context.Context) error {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("entries", len(keys)).Info("Cleared flow cache")
	return nil
}

func (c *RedisFlowCache) delete(ctx context.Context, cacheKey string) {
	if err := c.redis.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.WithError(err).Debug("Failed to delete stale flow cache entry")
	}
}
