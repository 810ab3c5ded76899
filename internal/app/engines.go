package app

import (
	"context"

	"spectral-workbench/internal/common/cache"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/metrics"
	"spectral-workbench/internal/pipeline"
	previewcache "spectral-workbench/internal/pipeline/cache"
	"spectral-workbench/internal/pipeline/operators"
)

// previewConfig maps service configuration onto engine configuration
func (app *App) previewConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Limits = pipeline.Limits{
		MaxSamples:  app.Config.MaxSamples,
		MaxFeatures: app.Config.MaxFeatures,
		MaxSteps:    app.Config.MaxSteps,
	}
	cfg.StepTimeout = app.Config.StepTimeout
	cfg.PurgeSchedule = app.Config.CachePurgeSchedule
	cfg.Cache.TTL = app.Config.CacheTTL
	cfg.Cache.Capacity = app.Config.CacheCapacity

	if app.Config.CacheShared && app.RedisClient != nil {
		cfg.Cache.Shared = cache.NewRedisCache(app.RedisClient.Redis(), previewcache.KeyPrefix)
	}
	return cfg
}

func (app *App) initializePreviewEngine(ctx context.Context) error {
	cfg := app.previewConfig()
	registry := operators.NewDefaultRegistry()

	engine := pipeline.NewEngine(cfg, registry,
		pipeline.WithMetrics(app.Metrics),
		pipeline.WithLogger(app.Logger.WithFields(logging.String("component", "preview"))),
	)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	metrics.RegisterCacheStats(app.Metrics.Registerer(), func() cache.Stats {
		return engine.CacheStats().Stats
	})

	app.PreviewEngine = engine
	app.Logger.Info("Preview Engine: Started",
		logging.Int("max_samples", cfg.Limits.MaxSamples),
		logging.Int("max_features", cfg.Limits.MaxFeatures),
		logging.Int("max_steps", cfg.Limits.MaxSteps),
		logging.Duration("cache_ttl", cfg.Cache.TTL),
		logging.Int("cache_capacity", cfg.Cache.Capacity),
		logging.Bool("shared_cache", cfg.Cache.Shared != nil),
	)
	return nil
}
