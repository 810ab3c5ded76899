package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket limiter with optional per-key buckets
type Limiter interface {
	Wait(ctx context.Context) error
	TryAcquire() bool
	TryAcquireForKey(key string) bool
	Stats() map[string]interface{}
}

// localLimiter implements rate limiting using golang.org/x/time/rate
type localLimiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry

	globalLimiter *rate.Limiter
	lastCleanup   time.Time
	now           func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a new in-process rate limiter
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &localLimiter{
		config:        config,
		limiters:      make(map[string]*limiterEntry),
		globalLimiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
		lastCleanup:   time.Now(),
		now:           time.Now,
	}, nil
}

// Wait blocks until a request can be made according to the rate limit
func (rl *localLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}
	return rl.globalLimiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token from the global bucket without blocking
func (rl *localLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.globalLimiter.Allow()
}

// TryAcquireForKey attempts to acquire a token from key's bucket
func (rl *localLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.getLimiterForKey(key).Allow()
}

func (rl *localLimiter) getLimiterForKey(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanup(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		}
		rl.limiters[key] = entry

		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup(now)
		}
	}
	entry.lastUsed = now

	return entry.limiter
}

// cleanup removes limiters that haven't been used within the cleanup period
func (rl *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupPeriod)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

// Stats returns rate limiter statistics
func (rl *localLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"enabled":             rl.config.Enabled,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
		"available_tokens":    rl.globalLimiter.Tokens(),
		"active_keys":         len(rl.limiters),
		"max_keys":            rl.config.MaxKeys,
	}
}
