// Package config provides configuration management for the preview service.
// It loads configuration from environment variables with sensible defaults
// and validates it so the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: "console" or "json" (default: console)
//   - LOG_FILE: Log file path; stdout when empty
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address; empty disables Redis (default: empty)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Preview Engine:
//   - PREVIEW_MAX_SAMPLES: Largest accepted sample count (default: 10000)
//   - PREVIEW_MAX_FEATURES: Largest accepted feature count (default: 10000)
//   - PREVIEW_MAX_STEPS: Largest accepted step count (default: 50)
//   - PREVIEW_STEP_TIMEOUT: Per-step timeout, 0 disables (default: 0)
//   - PREVIEW_CACHE_TTL: Cached result lifetime (default: 5m)
//   - PREVIEW_CACHE_CAPACITY: Cached result count (default: 100)
//   - PREVIEW_CACHE_SHARED: Share cached results through Redis (default: false)
//   - PREVIEW_CACHE_PURGE_SCHEDULE: Cron spec for purging expired results (default: @every 1m)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting on the execute endpoint (default: false)
//   - RATE_LIMIT_RPS: Sustained requests per second (default: 20)
//   - RATE_LIMIT_BURST: Burst size (default: 40)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"spectral-workbench/internal/common/validation"
)

// Config holds all configuration values for the preview service.
//
// Load never fails; values that cannot be parsed keep their default and
// are reported by Validate.
type Config struct {
	// Application settings
	Port      string
	LogLevel  string
	LogFormat string
	LogFile   string

	// Redis configuration for the shared cache tier
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Preview engine admission limits
	MaxSamples  int
	MaxFeatures int
	MaxSteps    int
	StepTimeout time.Duration

	// Result cache
	CacheTTL           time.Duration
	CacheCapacity      int
	CacheShared        bool
	CachePurgeSchedule string

	// Rate limiting configuration
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	parseErrors []string
}

// Load creates a new Config with values loaded from environment variables.
// Call Validate on the result before use.
func Load() *Config {
	c := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile:   getEnv("LOG_FILE", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CachePurgeSchedule: getEnv("PREVIEW_CACHE_PURGE_SCHEDULE", "@every 1m"),
	}

	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.getIntEnv("REDIS_POOL_SIZE", 10)

	c.MaxSamples = c.getIntEnv("PREVIEW_MAX_SAMPLES", 10000)
	c.MaxFeatures = c.getIntEnv("PREVIEW_MAX_FEATURES", 10000)
	c.MaxSteps = c.getIntEnv("PREVIEW_MAX_STEPS", 50)
	c.StepTimeout = c.getDurationEnv("PREVIEW_STEP_TIMEOUT", 0)

	c.CacheTTL = c.getDurationEnv("PREVIEW_CACHE_TTL", 5*time.Minute)
	c.CacheCapacity = c.getIntEnv("PREVIEW_CACHE_CAPACITY", 100)
	c.CacheShared = c.getBoolEnv("PREVIEW_CACHE_SHARED", false)

	c.RateLimitEnabled = c.getBoolEnv("RATE_LIMIT_ENABLED", false)
	c.RateLimitRPS = c.getFloatEnv("RATE_LIMIT_RPS", 20)
	c.RateLimitBurst = c.getIntEnv("RATE_LIMIT_BURST", 40)

	return c
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return parsed
}

func (c *Config) getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a number", key))
		return defaultValue
	}
	return parsed
}

// getBoolEnv accepts the strconv.ParseBool spellings ("true", "1", "f", ...)
func (c *Config) getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a boolean", key))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a valid duration (e.g., '30s', '5m')", key))
		return defaultValue
	}
	return parsed
}

// Validate checks parsed values, ranges and cross-field dependencies.
// All problems are reported together.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		port = 0
	}

	v := validation.NewFluentValidator()
	for _, msg := range c.parseErrors {
		msg := msg
		v.Validate(func() error { return fmt.Errorf("%s", msg) })
	}

	v.RequireRange(port, 1, 65535, "PORT").
		RequireOneOf(c.LogLevel, []string{"debug", "info", "warn", "warning", "error"}, "LOG_LEVEL").
		RequireOneOf(c.LogFormat, []string{"console", "json"}, "LOG_FORMAT").
		RequirePositive(c.MaxSamples, "PREVIEW_MAX_SAMPLES").
		RequirePositive(c.MaxFeatures, "PREVIEW_MAX_FEATURES").
		RequirePositive(c.MaxSteps, "PREVIEW_MAX_STEPS").
		RequireDuration(c.StepTimeout, "PREVIEW_STEP_TIMEOUT").
		RequirePositiveDuration(c.CacheTTL, "PREVIEW_CACHE_TTL").
		RequirePositive(c.CacheCapacity, "PREVIEW_CACHE_CAPACITY").
		RequireCronSchedule(c.CachePurgeSchedule, "PREVIEW_CACHE_PURGE_SCHEDULE").
		ValidateIf(c.CacheShared, func() error {
			if !c.RedisEnabled() {
				return fmt.Errorf("PREVIEW_CACHE_SHARED requires REDIS_ADDRESS")
			}
			return nil
		})

	if c.RedisEnabled() {
		v.RequireRange(c.RedisDB, 0, 15, "REDIS_DB").
			RequirePositive(c.RedisPoolSize, "REDIS_POOL_SIZE")
	}

	if c.RateLimitEnabled {
		v.RequirePositiveFloat(c.RateLimitRPS, "RATE_LIMIT_RPS").
			RequirePositive(c.RateLimitBurst, "RATE_LIMIT_BURST")
	}

	return v.Error()
}
