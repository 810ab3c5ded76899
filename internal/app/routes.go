package app

import (
	"net/http"

	"spectral-workbench/internal/common/ratelimit"
	"spectral-workbench/internal/handlers"
	"spectral-workbench/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes for the application.
// A nil rateLimiter leaves the execute endpoint unlimited.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, metricsHandler http.Handler, rateLimiter ratelimit.Limiter) {
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", metricsHandler).Methods("GET")

	api := router.PathPrefix("/api/preview").Subrouter()

	execute := http.Handler(http.HandlerFunc(h.ExecutePreview))
	if rateLimiter != nil {
		execute = ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPKey)(execute)
	}
	api.Handle("/execute", execute).Methods("POST")

	api.HandleFunc("/operators", h.GetOperators).Methods("GET")
	api.HandleFunc("/cache", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache", h.ClearCache).Methods("DELETE")
}
