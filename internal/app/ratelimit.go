package app

import (
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/common/ratelimit"
)

// initializeRateLimiter creates the per-client limiter for the execute endpoint
func (app *App) initializeRateLimiter() error {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	limiter, err := ratelimit.NewLocalLimiter(ratelimit.Config{
		RequestsPerSecond: app.Config.RateLimitRPS,
		BurstSize:         app.Config.RateLimitBurst,
		Enabled:           true,
	})
	if err != nil {
		return err
	}

	app.RateLimiter = limiter
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Float64("requests_per_second", app.Config.RateLimitRPS),
		logging.Int("burst", app.Config.RateLimitBurst),
	)
	return nil
}
