// Package cache stores computed parameter reports between mutations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"granja/internal/domain/params"
)

// DefaultTTL bounds how long a report survives without an invalidation.
const DefaultTTL = 10 * time.Minute

// Compile-time check that RedisCache implements params.Cache.
var _ params.Cache = (*RedisCache)(nil)

// RedisCache keeps reports in Redis under a generation counter. Invalidation
// bumps the counter, so every process sharing the Redis instance stops
// reading the old entries at once; they expire on their TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig configures the Redis report cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Optional - defaults to "granja:params"
	TTL      time.Duration // Optional - defaults to DefaultTTL
}

// NewRedisClient creates a client from the configuration.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, cfg RedisConfig) *RedisCache {
	c := &RedisCache{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
	if c.prefix == "" {
		c.prefix = "granja:params"
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c
}

func (c *RedisCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

// Get implements params.Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*params.Report, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("get %s: %w", key, err)
	}

	var report params.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, gen, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return &report, gen, true, nil
}

// Set implements params.Cache. The report is written under gen, so one
// computed before an invalidation lands in a generation nobody reads and
// expires on its TTL.
func (c *RedisCache) Set(ctx context.Context, key string, gen int64, report *params.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.entryKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate implements params.Cache.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
