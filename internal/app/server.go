package app

import (
	"context"
	"net/http"

	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/handlers"
	"spectral-workbench/internal/server"

	"github.com/gorilla/mux"
)

// Handler builds the HTTP handler with all routes configured
func (app *App) Handler() http.Handler {
	var opts []handlers.Option
	if app.RedisClient != nil {
		opts = append(opts, handlers.WithRedis(app.RedisClient))
	}
	h := handlers.New(app.PreviewEngine, opts...)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Metrics.Handler(), app.RateLimiter)
	return router
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, "", "")
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	if app.PreviewEngine != nil {
		if err := app.PreviewEngine.Stop(); err != nil {
			app.Logger.Warn("Error stopping preview engine", logging.Err(err))
		} else {
			app.Logger.Info("Preview engine stopped")
		}
	}
	return nil
}
