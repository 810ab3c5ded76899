// Package cache stores preview responses keyed by a fingerprint of the
// request. Entries live in a bounded in-process tier and, optionally, in a
// shared Redis tier that several service instances can read.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"spectral-workbench/internal/circuitbreaker"
	"spectral-workbench/internal/common/cache"
	"spectral-workbench/internal/common/logging"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 100

	// KeyPrefix namespaces shared-tier keys in Redis.
	KeyPrefix = "preview:"
)

// SharedStore is the shared tier. *cache.RedisCache implements it.
type SharedStore interface {
	Get(ctx context.Context, key string, dest interface{}) (time.Duration, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Config configures a ResultCache
type Config struct {
	TTL      time.Duration
	Capacity int
	// Shared enables the second tier. Nil means local only.
	Shared SharedStore
}

// Stats extends the local tier counters with shared-tier activity
type Stats struct {
	cache.Stats
	SharedEnabled bool                  `json:"shared_enabled"`
	SharedHits    uint64                `json:"shared_hits"`
	SharedErrors  uint64                `json:"shared_errors"`
	Breaker       *circuitbreaker.Stats `json:"breaker,omitempty"`
}

// ResultCache is the two-tier response cache. Shared-tier failures are
// logged and otherwise ignored.
type ResultCache[V any] struct {
	local   *cache.LocalCache[V]
	shared  SharedStore
	breaker *circuitbreaker.GoBreakerAdapter
	ttl     time.Duration
	logger  logging.Logger

	sharedHits   atomic.Uint64
	sharedErrors atomic.Uint64
}

// New creates a result cache. Zero TTL or capacity take the defaults.
func New[V any](cfg Config, logger logging.Logger) *ResultCache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	c := &ResultCache[V]{
		local:  cache.NewLocalCache[V](cfg.TTL, cfg.Capacity),
		shared: cfg.Shared,
		ttl:    cfg.TTL,
		logger: logger,
	}
	if cfg.Shared != nil {
		c.breaker = circuitbreaker.NewGoBreaker("preview-cache-shared", circuitbreaker.SharedCacheConfig, logger)
	}
	return c
}

// Get looks key up locally, then in the shared tier. A shared hit is
// copied into the local tier for its remaining lifetime.
func (c *ResultCache[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, found := c.local.Get(key); found {
		return v, true
	}

	var zero V
	if c.shared == nil {
		return zero, false
	}

	var (
		value V
		ttl   time.Duration
		found bool
	)
	err := c.breaker.Execute(ctx, func() error {
		var err error
		ttl, found, err = c.shared.Get(ctx, key, &value)
		return err
	})
	if err != nil {
		c.sharedFailure(ctx, "get", err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	c.local.SetWithTTL(key, value, ttl)
	c.sharedHits.Add(1)
	return value, true
}

// Set stores value in both tiers
func (c *ResultCache[V]) Set(ctx context.Context, key string, value V) {
	c.local.Set(key, value)

	if c.shared == nil {
		return
	}
	err := c.breaker.Execute(ctx, func() error {
		return c.shared.Set(ctx, key, value, c.ttl)
	})
	if err != nil {
		c.sharedFailure(ctx, "set", err)
	}
}

// PurgeExpired removes expired local entries. The shared tier expires
// entries itself.
func (c *ResultCache[V]) PurgeExpired() int {
	return c.local.PurgeExpired()
}

// Clear empties both tiers. Only a shared-tier failure is returned; the
// local tier is always cleared.
func (c *ResultCache[V]) Clear(ctx context.Context) error {
	c.local.Clear()

	if c.shared == nil {
		return nil
	}
	err := c.breaker.Execute(ctx, func() error {
		return c.shared.Clear(ctx)
	})
	if err != nil {
		c.sharedFailure(ctx, "clear", err)
		return err
	}
	return nil
}

// Stats returns a snapshot of both tiers
func (c *ResultCache[V]) Stats() Stats {
	s := Stats{
		Stats:         c.local.Stats(),
		SharedEnabled: c.shared != nil,
		SharedHits:    c.sharedHits.Load(),
		SharedErrors:  c.sharedErrors.Load(),
	}
	if c.breaker != nil {
		bs := c.breaker.Stats()
		s.Breaker = &bs
	}
	return s
}

func (c *ResultCache[V]) sharedFailure(ctx context.Context, op string, err error) {
	c.sharedErrors.Add(1)
	if circuitbreaker.IsOpenError(err) {
		c.logger.WithContext(ctx).Debug("Shared cache skipped",
			logging.String("operation", op))
		return
	}
	c.logger.WithContext(ctx).Warn("Shared cache unavailable, using local tier only",
		logging.String("operation", op),
		logging.Err(err),
	)
}
