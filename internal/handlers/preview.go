package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/pipeline"
)

// CacheHeader reports whether a preview was served from the result cache
const CacheHeader = "X-Preview-Cache"

// ExecutePreview runs a preview request
// @Summary Execute a pipeline preview
// @Description Samples the dataset, runs the enabled steps and returns the processed data with statistics, projection and folds
// @Tags preview
// @Accept json
// @Produce json
// @Param request body pipeline.Request true "Preview request"
// @Success 200 {object} pipeline.Response "Preview result; step failures are reported in step_errors"
// @Failure 400 {object} ErrorResponse "Malformed JSON or invalid request"
// @Failure 413 {object} ErrorResponse "Request exceeds an admission limit"
// @Failure 429 {object} ErrorResponse "Rate limit exceeded"
// @Router /preview/execute [post]
func (h *Handlers) ExecutePreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, r, errors.LimitExceededError("request body bytes", int(tooLarge.Limit)+1, int(tooLarge.Limit)))
			return
		}
		writeError(w, r, errors.ValidationErrorf("invalid JSON: %v", err))
		return
	}

	resp, err := h.engine.Execute(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.CacheHit {
		w.Header().Set(CacheHeader, "hit")
	} else {
		w.Header().Set(CacheHeader, "miss")
	}
	if !resp.Success {
		logging.WithContext(r.Context()).Info("Preview completed with step errors",
			logging.Int("step_errors", len(resp.StepErrors)),
		)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOperators lists the registered operators
// @Summary List preview operators
// @Description Returns the registered transform and split operators with their aliases
// @Tags preview
// @Produce json
// @Success 200 {object} operators.Catalog "Operator catalog"
// @Router /preview/operators [get]
func (h *Handlers) GetOperators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Operators())
}

// GetCacheStats returns result cache statistics
// @Summary Preview cache statistics
// @Tags preview
// @Produce json
// @Success 200 {object} cache.Stats "Cache statistics"
// @Router /preview/cache [get]
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CacheStats())
}

// ClearCache drops every cached preview
// @Summary Clear the preview cache
// @Description Clears the local cache and, when enabled, the shared Redis tier
// @Tags preview
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache cleared"
// @Failure 503 {object} ErrorResponse "Local cache cleared but the shared tier failed"
// @Router /preview/cache [delete]
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCache(r.Context()); err != nil {
		writeError(w, r, errors.ConnectionError("local cache cleared, shared cache clear failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "cache cleared",
	})
}
