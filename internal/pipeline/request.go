package pipeline

import (
	"fmt"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/validation"
	"spectral-workbench/internal/numeric"
	"spectral-workbench/internal/pipeline/core"
	"spectral-workbench/internal/pipeline/sampling"

	"gonum.org/v1/gonum/mat"
)

// Limits are the admission bounds applied before any work is done.
// Zero disables a bound.
type Limits struct {
	MaxSamples  int
	MaxFeatures int
	MaxSteps    int
}

// resolvedOptions is Options with defaults applied. It excludes the
// use-cache flag, so it doubles as the options part of the fingerprint.
type resolvedOptions struct {
	ComputePCA             bool `json:"compute_pca"`
	ComputeStatistics      bool `json:"compute_statistics"`
	MaxWavelengthsReturned int  `json:"max_wavelengths_returned"`
	SplitIndex             *int `json:"split_index"`
}

// plan is a validated request ready to run
type plan struct {
	x           *mat.Dense
	y           []float64
	wavelengths []float64
	steps       []core.StepDefinition
	sampling    sampling.Config
	options     resolvedOptions
	useCache    bool
}

// prepare validates req against limits and applies defaults. Every error
// is a validation AppError; limit violations carry CodeLimitExceeded.
func prepare(req *Request, limits Limits) (*plan, error) {
	if req == nil {
		return nil, errors.ValidationError("request is required")
	}

	n := len(req.Data)
	if n == 0 {
		return nil, errors.ValidationError("data must contain at least one sample")
	}
	if limits.MaxSamples > 0 && n > limits.MaxSamples {
		return nil, errors.LimitExceededError("sample count", n, limits.MaxSamples)
	}
	c := len(req.Data[0])
	if c == 0 {
		return nil, errors.ValidationError("data must contain at least one feature")
	}
	if limits.MaxFeatures > 0 && c > limits.MaxFeatures {
		return nil, errors.LimitExceededError("feature count", c, limits.MaxFeatures)
	}

	x, err := numeric.FromRows(req.Data)
	if err != nil {
		return nil, errors.ValidationErrorf("invalid data: %v", err)
	}
	if !numeric.AllFinite(x) {
		return nil, errors.ValidationError("data contains non-finite values")
	}

	if req.Y != nil {
		if len(req.Y) != n {
			return nil, errors.ValidationErrorf("y has %d values, expected %d", len(req.Y), n)
		}
		if !numeric.FiniteSlice(req.Y) {
			return nil, errors.ValidationError("y contains non-finite values")
		}
	}
	if req.Wavelengths != nil && len(req.Wavelengths) != c {
		return nil, errors.ValidationErrorf("wavelengths has %d values, expected %d", len(req.Wavelengths), c)
	}

	if err := core.ValidateSteps(req.Steps, limits.MaxSteps); err != nil {
		return nil, err
	}

	samplingCfg, err := resolveSampling(req.Sampling)
	if err != nil {
		return nil, err
	}
	opts, useCache, err := resolveOptions(req.Options)
	if err != nil {
		return nil, err
	}

	wavelengths := req.Wavelengths
	if wavelengths == nil {
		wavelengths = make([]float64, c)
		for j := range wavelengths {
			wavelengths[j] = float64(j)
		}
	}

	return &plan{
		x:           x,
		y:           req.Y,
		wavelengths: wavelengths,
		steps:       req.Steps,
		sampling:    samplingCfg,
		options:     opts,
		useCache:    useCache,
	}, nil
}

func resolveSampling(req *SamplingRequest) (sampling.Config, error) {
	cfg := sampling.DefaultConfig()
	if req == nil {
		return cfg, nil
	}
	if err := validation.ValidateStruct(req); err != nil {
		return cfg, prefixed("sampling", err)
	}

	if req.Method != "" {
		cfg.Method = req.Method
	}
	if req.NSamples != nil {
		cfg.NSamples = *req.NSamples
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg, nil
}

func resolveOptions(req *Options) (resolvedOptions, bool, error) {
	opts := resolvedOptions{
		ComputePCA:             true,
		ComputeStatistics:      true,
		MaxWavelengthsReturned: DefaultMaxWavelengthsReturned,
	}
	if req == nil {
		return opts, true, nil
	}
	if err := validation.ValidateStruct(req); err != nil {
		return opts, false, prefixed("options", err)
	}

	if req.ComputePCA != nil {
		opts.ComputePCA = *req.ComputePCA
	}
	if req.ComputeStatistics != nil {
		opts.ComputeStatistics = *req.ComputeStatistics
	}
	if req.MaxWavelengthsReturned != nil {
		opts.MaxWavelengthsReturned = *req.MaxWavelengthsReturned
	}
	opts.SplitIndex = req.SplitIndex

	useCache := req.UseCache == nil || *req.UseCache
	return opts, useCache, nil
}

func prefixed(section string, err error) error {
	if appErr, ok := errors.As(err); ok {
		return errors.ValidationError(fmt.Sprintf("%s: %s", section, appErr.Message))
	}
	return errors.ValidationError(fmt.Sprintf("%s: %v", section, err))
}
