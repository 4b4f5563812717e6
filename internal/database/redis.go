package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/etfflow-go/internal/config"
)

// RedisClient owns the process-wide Redis connection backing the flow cache.
type RedisClient struct {
	Client *redis.Client
	logger logrus.FieldLogger
}

// NewRedisConnection dials Redis and verifies it answers a PING.
func NewRedisConnection(ctx context.Context, cfg config.RedisConfig, logger logrus.FieldLogger) (*RedisClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", rdb.Options().Addr).Info("Successfully connected to Redis")

	return &RedisClient{Client: rdb, logger: logger}, nil
}

func (r *RedisClient) Close() {
	if r == nil || r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil {
		r.logger.WithError(err).Warn("Error closing Redis connection")
		return
	}
	r.logger.Info("Redis connection closed")
}

// HealthCheck pings Redis. A nil client reports as unavailable.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.Client.Ping(ctx).Err()
}
