// Package cache provides the storage tiers behind the preview result cache.
//
//   - LocalCache wraps github.com/patrickmn/go-cache with a capacity bound
//     and first-in-first-out eviction.
//   - RedisCache stores JSON values in Redis (github.com/go-redis/redis/v8)
//     under a key prefix so several instances can share results.
//
// Usage:
//
//	local := cache.NewLocalCache[*Response](5*time.Minute, 100)
//	local.Set("key", resp)
//	resp, found := local.Get("key")
//
//	shared := cache.NewRedisCache(redisClient, "preview:")
//	err := shared.Set(ctx, "key", resp, 5*time.Minute)
//	ttl, found, err := shared.Get(ctx, "key", &resp)
package cache
