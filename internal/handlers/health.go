package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports engine and Redis status
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "Service is healthy"
// @Failure 503 {object} map[string]interface{} "A dependency is unhealthy"
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Operators()
	stats := h.engine.CacheStats()

	status := map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now(),
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"engine_status":  "healthy",
		"operators":      len(catalog.Transforms) + len(catalog.Splitters),
		"cache_entries":  stats.Size,
	}
	code := http.StatusOK

	if h.redis == nil {
		status["redis_status"] = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.redis.Health(ctx); err != nil {
			status["status"] = "unhealthy"
			status["redis_status"] = "unhealthy"
			status["redis_error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["redis_status"] = "healthy"
		}
	}
	if stats.Breaker != nil {
		status["shared_cache_breaker"] = stats.Breaker.State
	}

	writeJSON(w, code, status)
}
