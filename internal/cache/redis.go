// Package cache stores short-lived dashboard summaries per doctor. Early
// warning results are never cached.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clindx-engine/internal/domain"
)

const (
	defaultSummaryTTL = 30 * time.Second
	summaryKeyPrefix  = "clindx:dashboard:summary:"
)

// RedisSummaryCache keeps dashboard summaries in Redis.
type RedisSummaryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSummaryCache connects to Redis and verifies the connection.
func NewRedisSummaryCache(ctx context.Context, config domain.CacheConfig) (*RedisSummaryCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSummaryCacheFromClient(client, config.SummaryTTL), nil
}

// NewRedisSummaryCacheFromClient wraps an existing client.
func NewRedisSummaryCacheFromClient(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &RedisSummaryCache{redis: client, ttl: ttl}
}

// Get returns the cached summary for doctorID, if any.
func (c *RedisSummaryCache) Get(ctx context.Context, doctorID int64) (*domain.DashboardSummary, bool, error) {
	key := summaryKey(doctorID)

	val, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get dashboard summary cache: %w", err)
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal(val, &summary); err != nil {
		// Corrupted entries are dropped and treated as a miss.
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return &summary, true, nil
}

// Set caches summary for the configured TTL.
func (c *RedisSummaryCache) Set(ctx context.Context, doctorID int64, summary *domain.DashboardSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard summary: %w", err)
	}
	return c.redis.Set(ctx, summaryKey(doctorID), data, c.ttl).Err()
}

// Invalidate drops the cached summary for doctorID.
func (c *RedisSummaryCache) Invalidate(ctx context.Context, doctorID int64) error {
	return c.redis.Del(ctx, summaryKey(doctorID)).Err()
}

// Health pings Redis.
func (c *RedisSummaryCache) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RedisSummaryCache) Close() error {
	return c.redis.Close()
}

func summaryKey(doctorID int64) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, doctorID)
}
