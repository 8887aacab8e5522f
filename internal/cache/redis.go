package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ffrankings/ingestion/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// KeyPrefix namespaces every key written by this service
const KeyPrefix = "ffrank:"

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache is a JSON read-through cache for ranking queries
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	b, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return false, nil
	}
	if err != nil {
		metrics.RecordCacheMiss()
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		metrics.RecordCacheMiss()
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}

	metrics.RecordCacheHit()
	return true, nil
}

// SetJSON stores v at key with the given TTL
func (c *RedisCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, KeyPrefix+key, b, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every key under prefix and returns the number removed
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) (int, error) {
	iter := c.client.Scan(ctx, 0, KeyPrefix+prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan %s: %w", prefix, err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache delete %s: %w", prefix, err)
	}

	log.Debug().Str("prefix", prefix).Int64("removed", removed).Msg("Cache invalidated")
	return int(removed), nil
}
