// Package redis manages the optional Redis connection shared by the
// result cache and the health endpoint.
package redis

import (
	"context"
	"fmt"
	"time"

	"spectral-workbench/internal/common/errors"

	"github.com/go-redis/redis/v8"
)

const defaultPingTimeout = 5 * time.Second

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// NewClient connects to Redis and verifies the connection with a ping
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.ConnectionError(fmt.Sprintf("failed to connect to Redis at %s", config.Address), err)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

// Redis returns the underlying go-redis client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Address returns the configured server address
func (c *Client) Address() string {
	return c.config.Address
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server, bounded by ctx and a five second ceiling
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// PoolStats exposes connection pool counters for health reporting
func (c *Client) PoolStats() *redis.PoolStats {
	return c.rdb.PoolStats()
}
