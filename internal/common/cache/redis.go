package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores JSON-encoded values in Redis under a key prefix
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get decodes the value stored under key into dest and returns its
// remaining TTL. found is false when the key does not exist.
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) (ttl time.Duration, found bool, err error) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, r.keyPrefix+key)
	ttlCmd := pipe.PTTL(ctx, r.keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	data, err := getCmd.Bytes()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return 0, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	ttl = ttlCmd.Val()
	if ttl <= 0 {
		// Persistent key or missing TTL; the caller applies its default.
		ttl = 0
	}
	return ttl, true, nil
}

// Set stores value in Redis
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	return r.client.Set(ctx, r.keyPrefix+key, data, ttl).Err()
}

// Clear removes all items with the key prefix from Redis
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}

	return nil
}
