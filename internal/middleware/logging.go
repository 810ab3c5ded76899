package middleware

import (
	"net/http"
	"time"

	"spectral-workbench/internal/common/logging"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs all HTTP requests with method, path, status, and duration.
// Mount it inside RequestIDMiddleware so entries carry the request ID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		fields := []logging.Field{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", wrapped.statusCode),
			logging.Int64("duration_ms", duration.Milliseconds()),
			logging.String("remote_addr", r.RemoteAddr),
		}

		if r.URL.RawQuery != "" {
			fields = append(fields, logging.String("query", r.URL.RawQuery))
		}
		if ua := r.Header.Get("User-Agent"); ua != "" {
			fields = append(fields, logging.String("user_agent", ua))
		}
		if cache := wrapped.Header().Get("X-Preview-Cache"); cache != "" {
			fields = append(fields, logging.String("preview_cache", cache))
		}

		logger := logging.WithContext(r.Context())
		if wrapped.statusCode >= 500 {
			logger.Error("HTTP request completed", nil, fields...)
		} else if wrapped.statusCode >= 400 {
			logger.Warn("HTTP request completed", fields...)
		} else {
			logger.Info("HTTP request completed", fields...)
		}
	})
}
