package ratelimit

import (
	"time"

	"spectral-workbench/internal/common/errors"
)

// Config represents rate limiter configuration
type Config struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
	Enabled           bool    `json:"enabled"`

	// Per-key limiters idle for longer than CleanupPeriod are dropped
	MaxKeys       int           `json:"max_keys,omitempty"`
	CleanupPeriod time.Duration `json:"cleanup_period,omitempty"`
}

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.RequestsPerSecond <= 0 {
		return errors.ConfigError("rate limit requests per second must be positive")
	}
	if c.BurstSize <= 0 {
		c.BurstSize = int(c.RequestsPerSecond)
		if c.BurstSize < 1 {
			c.BurstSize = 1
		}
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
	if c.CleanupPeriod <= 0 {
		c.CleanupPeriod = 5 * time.Minute
	}

	return nil
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		BurstSize:         40,
		Enabled:           false,
		MaxKeys:           10000,
		CleanupPeriod:     5 * time.Minute,
	}
}
