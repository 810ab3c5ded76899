package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"spectral-workbench/internal/common/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureRequestID(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var got string
	rec := httptest.NewRecorder()
	RequestIDMiddleware(captureRequestID(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
	assert.Equal(t, got, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDMiddleware_ReusesIncomingID(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	RequestIDMiddleware(captureRequestID(&got)).ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", got)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDMiddleware_ReplacesMalformedID(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	RequestIDMiddleware(captureRequestID(&got)).ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEqual(t, "bad id\nwith newline", got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestLoggingMiddleware_PassesThroughStatus(t *testing.T) {
	handler := RequestIDMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Preview-Cache", "miss")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/preview/execute?x=1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Preview-Cache"))
}
