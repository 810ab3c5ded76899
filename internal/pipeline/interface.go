package pipeline

import (
	"context"

	"spectral-workbench/internal/pipeline/analysis"
	"spectral-workbench/internal/pipeline/cache"
	"spectral-workbench/internal/pipeline/core"
	"spectral-workbench/internal/pipeline/folds"
	"spectral-workbench/internal/pipeline/operators"
	"spectral-workbench/internal/pipeline/sampling"
)

// Engine previews preprocessing pipelines on in-memory spectra
type Engine interface {
	// Execute validates the request, then answers it from the result cache
	// or by running the steps on a sampled subset
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Operators lists the registered operators by kind
	Operators() operators.Catalog

	// CacheStats returns result cache counters
	CacheStats() cache.Stats

	// ClearCache drops every cached response
	ClearCache(ctx context.Context) error

	// PurgeExpired drops expired cached responses and returns how many
	PurgeExpired() int

	// Start initializes the engine and its background jobs
	Start(ctx context.Context) error

	// Stop shuts down background jobs
	Stop() error
}

// Request is a preview request. Only Data is required.
type Request struct {
	Data        [][]float64           `json:"data"`
	Y           []float64             `json:"y,omitempty"`
	Wavelengths []float64             `json:"wavelengths,omitempty"`
	Steps       []core.StepDefinition `json:"steps"`
	Sampling    *SamplingRequest      `json:"sampling,omitempty"`
	Options     *Options              `json:"options,omitempty"`
}

// SamplingRequest selects the subset to preview. Omitted fields take the
// defaults of sampling.DefaultConfig.
type SamplingRequest struct {
	Method   sampling.Method `json:"method,omitempty" validate:"sampling_method"`
	NSamples *int            `json:"n_samples,omitempty" validate:"omitempty,min=1"`
	Seed     *int64          `json:"seed,omitempty"`
}

// Options toggles optional response blocks. Omitted fields take their
// documented defaults.
type Options struct {
	ComputePCA             *bool `json:"compute_pca,omitempty"`
	ComputeStatistics      *bool `json:"compute_statistics,omitempty"`
	MaxWavelengthsReturned *int  `json:"max_wavelengths_returned,omitempty" validate:"omitempty,min=0"`
	SplitIndex             *int  `json:"split_index,omitempty"`
	UseCache               *bool `json:"use_cache,omitempty"`
}

// DefaultMaxWavelengthsReturned caps returned features unless overridden
const DefaultMaxWavelengthsReturned = 500

// Response is the preview result
type Response struct {
	Success         bool                 `json:"success"`
	Original        OriginalBlock        `json:"original"`
	Processed       ProcessedBlock       `json:"processed"`
	PCA             *analysis.Projection `json:"pca,omitempty"`
	Folds           *folds.Info          `json:"folds,omitempty"`
	ExecutionTrace  []core.TraceEntry    `json:"execution_trace"`
	StepErrors      []StepErrorInfo      `json:"step_errors"`
	Sampling        SamplingInfo         `json:"sampling"`
	ExecutionTimeMs float64              `json:"execution_time_ms"`
	CacheHit        bool                 `json:"cache_hit"`
}

// OriginalBlock is the sampled input before any step ran. Spectra and
// Wavelengths are decimated to the returned features; Shape is not.
type OriginalBlock struct {
	Spectra       [][]float64          `json:"spectra"`
	Wavelengths   []float64            `json:"wavelengths"`
	SampleIndices []int                `json:"sample_indices"`
	Y             []float64            `json:"y,omitempty"`
	Shape         core.Shape           `json:"shape"`
	Statistics    *analysis.Statistics `json:"statistics,omitempty"`
}

// ProcessedBlock is the sampled data after the last successful transform.
// Wavelengths is present only when the feature count is unchanged.
type ProcessedBlock struct {
	Spectra     [][]float64          `json:"spectra"`
	Wavelengths []float64            `json:"wavelengths,omitempty"`
	Shape       core.Shape           `json:"shape"`
	Statistics  *analysis.Statistics `json:"statistics,omitempty"`
}

// StepErrorInfo describes one failed step
type StepErrorInfo struct {
	StepID string `json:"step_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Error  string `json:"error"`
}

// SamplingInfo reports the strategy requested and the one that ran
type SamplingInfo struct {
	MethodRequested sampling.Method `json:"method_requested"`
	MethodUsed      sampling.Method `json:"method_used"`
	NSamples        int             `json:"n_samples"`
	Seed            int64           `json:"seed"`
}
