package app

import (
	"context"

	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/common/ratelimit"
	"spectral-workbench/internal/config"
	"spectral-workbench/internal/metrics"
	"spectral-workbench/internal/pipeline"
	"spectral-workbench/internal/redis"
)

// App holds all the application dependencies
type App struct {
	Config        *config.Config
	PreviewEngine pipeline.Engine
	Metrics       *metrics.Metrics
	RedisClient   *redis.Client
	RateLimiter   ratelimit.Limiter
	Logger        logging.Logger
}

// New creates a new application instance with all dependencies
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logging.WithFields(logging.String("component", "app")),
		Metrics: metrics.New(),
	}

	if err := app.initializeRedis(); err != nil {
		if cfg.CacheShared {
			return nil, err
		}
		// Redis only backs the shared cache tier, so it is optional otherwise
		app.Logger.Warn("Redis initialization failed, continuing without Redis", logging.Err(err))
	}

	if err := app.initializePreviewEngine(ctx); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
