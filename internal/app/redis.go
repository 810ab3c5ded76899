package app

import (
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (shared preview cache disabled)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))
	return nil
}
