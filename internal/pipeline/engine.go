package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/metrics"
	"spectral-workbench/internal/numeric"
	"spectral-workbench/internal/pipeline/analysis"
	"spectral-workbench/internal/pipeline/cache"
	"spectral-workbench/internal/pipeline/core"
	"spectral-workbench/internal/pipeline/operators"
	"spectral-workbench/internal/pipeline/sampling"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultPurgeSchedule runs the expired-entry purge once a minute
const DefaultPurgeSchedule = "@every 1m"

// Config configures a BasicEngine
type Config struct {
	Limits Limits
	// StepTimeout bounds each operator call; zero disables it
	StepTimeout time.Duration
	Cache       cache.Config
	// PurgeSchedule is a cron spec for purging expired cache entries;
	// empty uses DefaultPurgeSchedule
	PurgeSchedule string
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Limits: Limits{
			MaxSamples:  10000,
			MaxFeatures: 10000,
			MaxSteps:    50,
		},
		Cache: cache.Config{
			TTL:      cache.DefaultTTL,
			Capacity: cache.DefaultCapacity,
		},
		PurgeSchedule: DefaultPurgeSchedule,
	}
}

// Option configures optional engine collaborators
type Option func(*BasicEngine)

// WithMetrics records request and step metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *BasicEngine) { e.metrics = m }
}

// WithLogger overrides the global logger
func WithLogger(l logging.Logger) Option {
	return func(e *BasicEngine) { e.logger = l }
}

// BasicEngine implements the Engine interface
type BasicEngine struct {
	config   Config
	registry *operators.Registry
	runner   *core.Runner
	cache    *cache.ResultCache[*Response]
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   logging.Logger

	mu      sync.Mutex
	started bool
	cron    *cron.Cron
}

// NewEngine creates an engine resolving operators through registry
func NewEngine(config Config, registry *operators.Registry, opts ...Option) *BasicEngine {
	e := &BasicEngine{
		config:   config,
		registry: registry,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.GetGlobalLogger()
	}

	runnerOpts := []core.RunnerOption{
		core.WithStepTimeout(config.StepTimeout),
		core.WithLogger(e.logger),
	}
	if e.metrics != nil {
		runnerOpts = append(runnerOpts, core.WithObserver(e.metrics))
	}
	e.runner = core.NewRunner(registry, runnerOpts...)
	e.cache = cache.New[*Response](config.Cache, e.logger)
	return e
}

// Start schedules the periodic cache purge
func (e *BasicEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.registry == nil {
		return errors.ConfigError("operator registry is not initialized")
	}

	schedule := e.config.PurgeSchedule
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, e.purgeJob); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid cache purge schedule %q: %v", schedule, err))
	}
	c.Start()

	e.cron = c
	e.started = true
	e.logger.Info("Preview engine started",
		logging.String("purge_schedule", schedule),
		logging.Int("operators", e.registry.Count()),
	)
	return nil
}

// Stop halts the purge job, waiting for a running purge to finish
func (e *BasicEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	<-e.cron.Stop().Done()
	e.cron = nil
	e.started = false
	return nil
}

func (e *BasicEngine) purgeJob() {
	if n := e.PurgeExpired(); n > 0 {
		e.logger.Debug("Purged expired previews", logging.Int("count", n))
	}
}

// Operators lists the registered operators
func (e *BasicEngine) Operators() operators.Catalog {
	return e.registry.Catalog()
}

// CacheStats returns result cache counters
func (e *BasicEngine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// ClearCache drops every cached response
func (e *BasicEngine) ClearCache(ctx context.Context) error {
	err := e.cache.Clear(ctx)
	e.logger.WithContext(ctx).Info("Preview cache cleared", logging.Bool("shared_ok", err == nil))
	return err
}

// PurgeExpired drops expired cached responses
func (e *BasicEngine) PurgeExpired() int {
	return e.cache.PurgeExpired()
}

type outcome struct {
	resp *Response
	hit  bool
}

// Execute answers a preview request. Only invalid input and a cancelled
// ctx produce an error; step failures are reported in the response.
func (e *BasicEngine) Execute(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	p, err := prepare(req, e.config.Limits)
	if err != nil {
		e.metrics.ObserveRequest(metrics.OutcomeInvalid, false, time.Since(start))
		return nil, err
	}

	var out outcome
	if p.useCache {
		out, err = e.executeCached(ctx, p)
	} else {
		out.resp, _, err = e.compute(ctx, p)
	}
	if err != nil {
		e.observeFailure(err, time.Since(start))
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.TimeoutError("preview execution", err)
		}
		return nil, err
	}

	// Cached and shared responses are never mutated; callers get a copy.
	resp := *out.resp
	resp.CacheHit = out.hit
	resp.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000

	outcomeLabel := metrics.OutcomeSuccess
	switch {
	case out.hit:
		outcomeLabel = metrics.OutcomeCacheHit
	case !resp.Success:
		outcomeLabel = metrics.OutcomePartial
	}
	e.metrics.ObserveRequest(outcomeLabel, out.hit, time.Since(start))

	e.logger.WithContext(ctx).Debug("Preview executed",
		logging.Bool("cache_hit", out.hit),
		logging.Bool("success", resp.Success),
		logging.Int("steps", len(resp.ExecutionTrace)),
		logging.Float64("execution_time_ms", resp.ExecutionTimeMs),
	)
	return &resp, nil
}

func (e *BasicEngine) executeCached(ctx context.Context, p *plan) (outcome, error) {
	key, err := cache.Fingerprint(cache.FingerprintInput{
		X:           p.x,
		Y:           p.y,
		Wavelengths: p.wavelengths,
		Steps:       p.steps,
		Sampling:    p.sampling,
		Options:     p.options,
	})
	if err != nil {
		return outcome{}, errors.InternalError("failed to fingerprint request", err)
	}

	// Only the caller that leads the flight runs fn, so the lookup and
	// its miss are counted once per computation. Callers that joined a
	// flight led by another request are reported as hits.
	led := false
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		led = true
		if resp, found := e.cache.Get(ctx, key); found {
			return outcome{resp: resp, hit: true}, nil
		}

		resp, cacheable, err := e.compute(ctx, p)
		if err != nil {
			return nil, err
		}
		if cacheable {
			e.cache.Set(ctx, key, resp)
		}
		return outcome{resp: resp}, nil
	})
	if err != nil {
		return outcome{}, err
	}

	out := v.(outcome)
	if !led {
		out.hit = true
	}
	return out, nil
}

// compute samples, runs the steps and assembles a response. cacheable is
// false when a step timed out, since a retry may succeed.
func (e *BasicEngine) compute(ctx context.Context, p *plan) (*Response, bool, error) {
	sel := sampling.Select(p.x, p.y, p.sampling)
	xs := numeric.SelectRows(p.x, sel.Indices)

	var ys []float64
	if p.y != nil {
		ys = make([]float64, len(sel.Indices))
		for k, i := range sel.Indices {
			ys[k] = p.y[i]
		}
	}

	res, err := e.runner.Run(ctx, core.RunInput{
		X:          xs,
		Y:          ys,
		Steps:      p.steps,
		SplitIndex: p.options.SplitIndex,
	})
	if err != nil {
		return nil, false, err
	}

	resp := &Response{
		Success:        res.Success(),
		ExecutionTrace: res.Trace,
		StepErrors:     make([]StepErrorInfo, 0, len(res.Errors)),
		Folds:          res.Folds,
		Sampling: SamplingInfo{
			MethodRequested: p.sampling.Method,
			MethodUsed:      sel.MethodUsed,
			NSamples:        len(sel.Indices),
			Seed:            p.sampling.Seed,
		},
	}
	for _, se := range res.Errors {
		resp.StepErrors = append(resp.StepErrors, StepErrorInfo{
			StepID: se.StepID,
			Name:   se.Operator,
			Type:   se.Kind,
			Error:  se.Message,
		})
	}

	n, c := xs.Dims()
	origCols := analysis.FeatureIndices(c, p.options.MaxWavelengthsReturned)
	resp.Original = OriginalBlock{
		Spectra:       numeric.ToRowsColumns(xs, origCols),
		Wavelengths:   pick(p.wavelengths, origCols),
		SampleIndices: sel.Indices,
		Y:             ys,
		Shape:         core.Shape{n, c},
	}

	_, pc := res.Data.Dims()
	procCols := analysis.FeatureIndices(pc, p.options.MaxWavelengthsReturned)
	resp.Processed = ProcessedBlock{
		Spectra: numeric.ToRowsColumns(res.Data, procCols),
		Shape:   core.Shape{n, pc},
	}
	if pc == c {
		resp.Processed.Wavelengths = pick(p.wavelengths, procCols)
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if p.options.ComputeStatistics {
		resp.Original.Statistics = analysis.ComputeStatistics(xs, origCols)
		resp.Processed.Statistics = analysis.ComputeStatistics(res.Data, procCols)
	}
	if p.options.ComputePCA {
		var labels []int
		if res.SplitterApplied {
			labels = res.Folds.FoldLabels
		}
		resp.PCA = analysis.Project(res.Data, ys, labels)
	}

	return resp, !res.TimedOut(), nil
}

func (e *BasicEngine) observeFailure(err error, d time.Duration) {
	label := metrics.OutcomeError
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		label = metrics.OutcomeCancelled
	}
	e.metrics.ObserveRequest(label, false, d)
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = values[i]
	}
	return out
}

var _ Engine = (*BasicEngine)(nil)

