package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/pipeline"
)

// DefaultMaxBodyBytes bounds the size of a preview request body
const DefaultMaxBodyBytes int64 = 64 << 20

// HealthChecker is implemented by optional dependencies reported on /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	engine       pipeline.Engine
	redis        HealthChecker
	maxBodyBytes int64
	startedAt    time.Time
	version      string
}

// Option configures Handlers
type Option func(*Handlers)

// WithRedis reports the given Redis client on /health
func WithRedis(redis HealthChecker) Option {
	return func(h *Handlers) { h.redis = redis }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handlers) { h.maxBodyBytes = n }
}

// WithVersion sets the version reported on /health
func WithVersion(version string) Option {
	return func(h *Handlers) { h.version = version }
}

func New(engine pipeline.Engine, opts ...Option) *Handlers {
	h := &Handlers{
		engine:       engine,
		maxBodyBytes: DefaultMaxBodyBytes,
		startedAt:    time.Now(),
		version:      "1.0.0",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and an ErrorResponse
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r.Context(), err)
	body := ErrorResponse{Success: false, Error: err.Error()}

	if appErr, ok := errors.As(err); ok {
		body.Error = appErr.Message
		body.Type = string(appErr.Type)
		body.Code = appErr.Code
	}

	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("Request failed", err,
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
		)
	}
	writeJSON(w, status, body)
}

func statusFor(ctx context.Context, err error) int {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.CodeLimitExceeded {
		return http.StatusRequestEntityTooLarge
	}
	switch {
	case errors.IsType(err, errors.ErrTypeValidation):
		return http.StatusBadRequest
	case errors.IsType(err, errors.ErrTypeNotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.ErrTypeTimeout):
		return http.StatusGatewayTimeout
	case errors.IsType(err, errors.ErrTypeConnection):
		return http.StatusServiceUnavailable
	}
	if ctx.Err() == context.DeadlineExceeded {
		return http.StatusGatewayTimeout
	}
	if ctx.Err() == context.Canceled {
		// The client is gone; the status is only for the access log
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
