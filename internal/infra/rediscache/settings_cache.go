// Package rediscache keeps store settings in Redis in front of the
// settings store, so dashboard runs of every instance read them cheaply.
package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
)

// unsetMarker caches "no value configured" so misses are cached too.
const unsetMarker = "-"

// SettingsCache is a read-through port.SettingsStore.
type SettingsCache struct {
	client  *redis.Client
	next    port.SettingsStore
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewClient connects to Redis.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewSettingsCache wraps next with a Redis cache of the given TTL.
func NewSettingsCache(client *redis.Client, next port.SettingsStore, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SettingsCache {
	return &SettingsCache{
		client:  client,
		next:    next,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func key(storeID string) string {
	return fmt.Sprintf("pos:settings:%s:low_stock_threshold", storeID)
}

// Ping checks connectivity for the readiness endpoint.
func (c *SettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *SettingsCache) Close() error {
	return c.client.Close()
}

// LowStockThreshold serves from Redis, falling back to the wrapped store.
// A Redis failure degrades to a direct read.
func (c *SettingsCache) LowStockThreshold(ctx context.Context, storeID string) (int, bool, error) {
	val, err := c.client.Get(ctx, key(storeID)).Result()
	switch {
	case err == nil:
		if v, ok := decode(val); ok || val == unsetMarker {
			c.metrics.IncrCacheHit(observability.CacheSettings)
			return v, ok, nil
		}
	case err != redis.Nil:
		c.logger.Warn("redis: settings read failed", zap.String("store_id", storeID), zap.Error(err))
	}
	c.metrics.IncrCacheMiss(observability.CacheSettings)

	v, ok, err := c.next.LowStockThreshold(ctx, storeID)
	if err != nil {
		return 0, false, err
	}

	payload := unsetMarker
	if ok {
		payload = strconv.Itoa(v)
	}
	if err := c.client.Set(ctx, key(storeID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("redis: settings write failed", zap.String("store_id", storeID), zap.Error(err))
	}
	return v, ok, nil
}

// SetLowStockThreshold writes through and drops the cached value.
func (c *SettingsCache) SetLowStockThreshold(ctx context.Context, storeID string, threshold int) error {
	if err := c.next.SetLowStockThreshold(ctx, storeID, threshold); err != nil {
		return err
	}
	if err := c.client.Del(ctx, key(storeID)).Err(); err != nil {
		c.logger.Warn("redis: settings invalidation failed", zap.String("store_id", storeID), zap.Error(err))
	}
	return nil
}

func decode(val string) (int, bool) {
	if val == unsetMarker {
		return 0, false
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return v, true
}
