package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/numeric"
	"spectral-workbench/internal/pipeline/folds"
	"spectral-workbench/internal/pipeline/operators"

	pipelineerrors "spectral-workbench/internal/pipeline/errors"

	"gonum.org/v1/gonum/mat"
)

// StepObserver is notified after every executed step. err is nil on success.
type StepObserver interface {
	StepCompleted(step *StepDefinition, duration time.Duration, err error)
}

// Runner executes preview steps sequentially. A failing step is recorded
// and skipped; the working matrix is left as it was before that step.
type Runner struct {
	resolver    operators.Resolver
	stepTimeout time.Duration
	observer    StepObserver
	logger      logging.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithStepTimeout bounds each operator call. Zero disables the bound.
func WithStepTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.stepTimeout = d }
}

// WithObserver registers a step observer
func WithObserver(o StepObserver) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// WithLogger overrides the global logger
func WithLogger(l logging.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner resolving operators through resolver
func NewRunner(resolver operators.Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{resolver: resolver}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunInput is the matrix and steps of one run. Y may be nil. SplitIndex
// selects a single fold for labelling.
type RunInput struct {
	X          *mat.Dense
	Y          []float64
	Steps      []StepDefinition
	SplitIndex *int
}

// Result is the outcome of a run
type Result struct {
	Data            *mat.Dense
	Trace           []TraceEntry
	Folds           *folds.Info
	Errors          []*pipelineerrors.StepError
	SplitterApplied bool
}

// Success reports whether every enabled step succeeded
func (r *Result) Success() bool {
	return len(r.Errors) == 0
}

// TimedOut reports whether any step hit the per-step timeout
func (r *Result) TimedOut() bool {
	for _, e := range r.Errors {
		if pipelineerrors.IsTimeout(e) {
			return true
		}
	}
	return false
}

// Run executes the enabled steps in order. It returns an error only when
// ctx is cancelled; step failures are reported in the result.
func (r *Runner) Run(ctx context.Context, in RunInput) (*Result, error) {
	logger := r.log().WithContext(ctx)
	res := &Result{
		Data:  in.X,
		Trace: make([]TraceEntry, 0, len(in.Steps)),
	}

	for i := range in.Steps {
		step := &in.Steps[i]
		if !step.IsEnabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		entry := TraceEntry{StepID: step.ID, Name: step.Name, Type: step.Type}

		var err error
		switch step.Type {
		case operators.KindTransform:
			var out *mat.Dense
			out, err = r.transform(ctx, step, res.Data)
			if err == nil {
				res.Data = out
				rows, cols := out.Dims()
				entry.OutputShape = &Shape{rows, cols}
			}
		case operators.KindSplit:
			var info *folds.Info
			info, err = r.split(ctx, step, res.Data, in.Y, in.SplitIndex)
			if err == nil {
				res.Folds = info
				res.SplitterApplied = true
			}
		default:
			err = errors.ValidationErrorf("unknown step type: %s", step.Type)
		}

		elapsed := time.Since(start)
		entry.DurationMs = float64(elapsed.Microseconds()) / 1000

		// The request itself went away; abandon the run.
		if ctxErr := ctx.Err(); ctxErr != nil && err != nil && !pipelineerrors.IsTimeout(err) {
			return nil, ctxErr
		}

		if err != nil {
			stepErr := pipelineerrors.NewStepError(step.ID, step.Name, string(step.Type), stepMessage(err), err)
			res.Errors = append(res.Errors, stepErr)
			entry.Error = stepErr.Message
			fields := []logging.Field{
				logging.String("step_id", step.ID),
				logging.String("operator", step.Name),
				logging.String("type", string(step.Type)),
			}
			if pipelineerrors.IsPanic(err) {
				logger.Error("Preview operator panicked", err, fields...)
			} else {
				logger.Warn("Preview step failed", append(fields, logging.Err(err))...)
			}
		} else {
			entry.Success = true
		}
		res.Trace = append(res.Trace, entry)

		if r.observer != nil {
			r.observer.StepCompleted(step, elapsed, err)
		}
	}

	return res, nil
}

func (r *Runner) transform(ctx context.Context, step *StepDefinition, x *mat.Dense) (*mat.Dense, error) {
	t, err := r.resolver.ResolveTransformer(step.Name, step.Params)
	if err != nil {
		return nil, err
	}

	out, err := invoke(ctx, step, r.stepTimeout, func(ctx context.Context) (*mat.Dense, error) {
		return t.FitTransform(ctx, x)
	})
	if err != nil {
		return nil, err
	}

	inRows, _ := x.Dims()
	if out == nil {
		return nil, errors.ExecutionError("transform returned no data", nil)
	}
	rows, cols := out.Dims()
	if rows != inRows {
		return nil, errors.ExecutionError(
			fmt.Sprintf("transform changed sample count from %d to %d", inRows, rows), nil)
	}
	if cols == 0 {
		return nil, errors.ExecutionError("transform produced no features", nil)
	}
	if !numeric.AllFinite(out) {
		return nil, errors.NumericalError("transform produced non-finite values")
	}
	return out, nil
}

func (r *Runner) split(ctx context.Context, step *StepDefinition, x *mat.Dense, y []float64, selected *int) (*folds.Info, error) {
	s, err := r.resolver.ResolveSplitter(step.Name, step.Params)
	if err != nil {
		return nil, err
	}

	fs, err := invoke(ctx, step, r.stepTimeout, func(ctx context.Context) ([]operators.Fold, error) {
		return s.Split(ctx, x, y)
	})
	if err != nil {
		return nil, err
	}

	n, _ := x.Dims()
	return folds.Assign(step.Name, fs, y, n, selected)
}

// stepMessage prefers an application error's bare message over its
// decorated Error() text.
func stepMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func (r *Runner) log() logging.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logging.GetGlobalLogger()
}

type outcome[T any] struct {
	value T
	err   error
}

// invoke calls fn with panic recovery and, when timeout > 0, abandons it
// once the deadline passes. An abandoned call keeps running in the
// background; its result is discarded.
func invoke[T any](ctx context.Context, step *StepDefinition, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return recovered(step, func() (T, error) { return fn(ctx) })
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := recovered(step, func() (T, error) { return fn(stepCtx) })
		done <- outcome[T]{value: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		if o.err != nil && stderrors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, &pipelineerrors.StepTimeoutError{StepID: step.ID, Timeout: timeout}
		}
		return o.value, o.err
	case <-stepCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &pipelineerrors.StepTimeoutError{StepID: step.ID, Timeout: timeout}
	}
}

func recovered[T any](step *StepDefinition, fn func() (T, error)) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			value = zero
			err = &pipelineerrors.OperatorPanicError{Operator: step.Name, Value: p}
		}
	}()
	return fn()
}
