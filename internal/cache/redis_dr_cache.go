package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

const redisDRKeyPrefix = "dr:lookup:"

// RedisDRCache shares DR metadata across instances. Expiry is delegated to
// key TTLs; misses and redis failures both read as cache misses.
type RedisDRCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDRCache builds a redis-backed DR cache.
func NewRedisDRCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisDRCache {
	return &RedisDRCache{client: client, ttl: ttl, logger: logger}
}

// Get fetches and decodes a cached record.
func (c *RedisDRCache) Get(ctx context.Context, drNumber string) (*domain.DropRecord, bool) {
	payload, err := c.client.Get(ctx, redisDRKeyPrefix+drNumber).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("dr cache read failed", zap.String("dr_number", drNumber), zap.Error(err))
		}
		return nil, false
	}
	var record domain.DropRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		c.logger.Warn("dr cache entry corrupt", zap.String("dr_number", drNumber), zap.Error(err))
		return nil, false
	}
	return &record, true
}

// Set encodes and stores a record with the configured TTL.
func (c *RedisDRCache) Set(ctx context.Context, drNumber string, record *domain.DropRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn("dr cache encode failed", zap.String("dr_number", drNumber), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisDRKeyPrefix+drNumber, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("dr cache write failed", zap.String("dr_number", drNumber), zap.Error(err))
	}
}

// Delete removes a single entry.
func (c *RedisDRCache) Delete(ctx context.Context, drNumber string) {
	if err := c.client.Del(ctx, redisDRKeyPrefix+drNumber).Err(); err != nil {
		c.logger.Warn("dr cache delete failed", zap.String("dr_number", drNumber), zap.Error(err))
	}
}

// Clear removes every DR entry via a prefix scan.
func (c *RedisDRCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisDRKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("dr cache clear failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("dr cache scan failed", zap.Error(err))
	}
}
