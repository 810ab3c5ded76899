package core

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"
	"strings"
	"testing"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"
	"spectral-workbench/internal/pipeline/operators"

	pipelineerrors "spectral-workbench/internal/pipeline/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type stubResolver struct {
	transforms map[string]operators.Transformer
	splitters  map[string]operators.Splitter
}

func (s *stubResolver) ResolveTransformer(name string, _ operators.Params) (operators.Transformer, error) {
	if t, ok := s.transforms[name]; ok {
		return t, nil
	}
	return nil, errors.NotFoundError("transform operator " + name)
}

func (s *stubResolver) ResolveSplitter(name string, _ operators.Params) (operators.Splitter, error) {
	if sp, ok := s.splitters[name]; ok {
		return sp, nil
	}
	return nil, errors.NotFoundError("split operator " + name)
}

func addOne() operators.Transformer {
	return operators.TransformerFunc(func(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
		var out mat.Dense
		out.Apply(func(_, _ int, v float64) float64 { return v + 1 }, x)
		return &out, nil
	})
}

func newStub() *stubResolver {
	return &stubResolver{
		transforms: map[string]operators.Transformer{
			"AddOne": addOne(),
			"Fail": operators.TransformerFunc(func(context.Context, *mat.Dense) (*mat.Dense, error) {
				return nil, fmt.Errorf("boom")
			}),
			"Panic": operators.TransformerFunc(func(context.Context, *mat.Dense) (*mat.Dense, error) {
				panic("kaboom")
			}),
			"NaN": operators.TransformerFunc(func(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
				out := mat.DenseCopyOf(x)
				out.Set(0, 0, math.NaN())
				return out, nil
			}),
			"DropRow": operators.TransformerFunc(func(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
				r, c := x.Dims()
				return mat.DenseCopyOf(x.Slice(0, r-1, 0, c)), nil
			}),
			"FirstColumn": operators.TransformerFunc(func(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
				r, _ := x.Dims()
				return mat.DenseCopyOf(x.Slice(0, r, 0, 1)), nil
			}),
			"Slow": operators.TransformerFunc(func(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(2 * time.Second):
					return x, nil
				}
			}),
		},
		splitters: map[string]operators.Splitter{
			"Halves": operators.SplitterFunc(func(_ context.Context, x *mat.Dense, _ []float64) ([]operators.Fold, error) {
				return []operators.Fold{
					{Train: []int{2, 3}, Test: []int{0, 1}},
					{Train: []int{0, 1}, Test: []int{2, 3}},
				}, nil
			}),
			"OutOfRange": operators.SplitterFunc(func(context.Context, *mat.Dense, []float64) ([]operators.Fold, error) {
				return []operators.Fold{{Train: []int{0}, Test: []int{99}}}, nil
			}),
		},
	}
}

func matrix4x3() *mat.Dense {
	return mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
}

func transformStep(id, name string) StepDefinition {
	return StepDefinition{ID: id, Type: operators.KindTransform, Name: name}
}

func TestRunner_AppliesTransformsInOrder(t *testing.T) {
	r := NewRunner(newStub())
	res, err := r.Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("a", "AddOne"), transformStep("b", "AddOne")},
	})
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Equal(t, 3.0, res.Data.At(0, 0))
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "a", res.Trace[0].StepID)
	assert.True(t, res.Trace[0].Success)
	assert.Equal(t, &Shape{4, 3}, res.Trace[0].OutputShape)
	assert.False(t, res.SplitterApplied)
}

func TestRunner_DisabledStepsProduceNoTrace(t *testing.T) {
	off := false
	step := transformStep("skip", "AddOne")
	step.Enabled = &off

	res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{step, transformStep("run", "AddOne")},
	})
	require.NoError(t, err)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, "run", res.Trace[0].StepID)
	assert.Equal(t, 2.0, res.Data.At(0, 0))
}

func TestRunner_FailuresAreIsolated(t *testing.T) {
	cases := []struct {
		name     string
		operator string
		contains string
	}{
		{"operator error", "Fail", "boom"},
		{"unknown operator", "Missing", "not found"},
		{"panic", "Panic", "kaboom"},
		{"non-finite output", "NaN", "non-finite"},
		{"sample count change", "DropRow", "sample count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
				X: matrix4x3(),
				Steps: []StepDefinition{
					transformStep("s1", "AddOne"),
					transformStep("s2", tc.operator),
					transformStep("s3", "AddOne"),
				},
			})
			require.NoError(t, err)

			assert.False(t, res.Success())
			require.Len(t, res.Trace, 3)
			assert.True(t, res.Trace[0].Success)
			assert.False(t, res.Trace[1].Success)
			assert.Contains(t, res.Trace[1].Error, tc.contains)
			assert.Nil(t, res.Trace[1].OutputShape)
			assert.True(t, res.Trace[2].Success)

			// s2 left the matrix untouched.
			assert.Equal(t, 3.0, res.Data.At(0, 0))

			require.Len(t, res.Errors, 1)
			assert.Equal(t, "s2", res.Errors[0].StepID)
			assert.Equal(t, tc.operator, res.Errors[0].Operator)
			assert.Equal(t, "transform", res.Errors[0].Kind)
		})
	}
}

func TestRunner_PanicIsTyped(t *testing.T) {
	res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("p", "Panic")},
	})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.True(t, pipelineerrors.IsPanic(res.Errors[0]))
}

func TestRunner_LogsPanicsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.WarnLevel, Output: &buf})
	require.NoError(t, err)

	_, err = NewRunner(newStub(), WithLogger(logger)).Run(context.Background(), RunInput{
		X: matrix4x3(),
		Steps: []StepDefinition{
			transformStep("p", "Panic"),
			transformStep("m", "Missing"),
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ERROR")
	assert.Contains(t, lines[0], "Preview operator panicked")
	assert.Contains(t, lines[1], "WARN")
	assert.Contains(t, lines[1], "Preview step failed")
}

func TestRunner_FeatureCountMayChange(t *testing.T) {
	res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("c", "FirstColumn")},
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, &Shape{4, 1}, res.Trace[0].OutputShape)
}

func TestRunner_SplitStepAssignsFolds(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
		X: matrix4x3(),
		Y: y,
		Steps: []StepDefinition{
			{ID: "cv", Type: operators.KindSplit, Name: "Halves"},
			transformStep("t", "AddOne"),
		},
	})
	require.NoError(t, err)

	assert.True(t, res.SplitterApplied)
	require.NotNil(t, res.Folds)
	assert.Equal(t, "Halves", res.Folds.Splitter)
	assert.Equal(t, []int{0, 0, 1, 1}, res.Folds.FoldLabels)
	assert.Nil(t, res.Trace[0].OutputShape)

	// Split steps never change the data.
	assert.Equal(t, 2.0, res.Data.At(0, 0))
}

func TestRunner_SplitIndexOutOfRange(t *testing.T) {
	res, err := NewRunner(newStub()).Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{{ID: "cv", Type: operators.KindSplit, Name: "OutOfRange"}},
	})
	require.NoError(t, err)
	assert.False(t, res.SplitterApplied)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "split", res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "out of range")
}

func TestRunner_StepTimeout(t *testing.T) {
	r := NewRunner(newStub(), WithStepTimeout(20*time.Millisecond))
	res, err := r.Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("slow", "Slow"), transformStep("next", "AddOne")},
	})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.True(t, pipelineerrors.IsTimeout(res.Errors[0]))
	assert.True(t, res.TimedOut())
	assert.True(t, res.Trace[1].Success)
	assert.Equal(t, 2.0, res.Data.At(0, 0))
}

func TestRunner_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewRunner(newStub()).Run(ctx, RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("a", "AddOne")},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunner_CancelDuringStepAborts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewRunner(newStub(), WithStepTimeout(time.Minute)).Run(ctx, RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("slow", "Slow")},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingObserver struct {
	mu     sync.Mutex
	steps  []string
	failed []string
}

func (o *recordingObserver) StepCompleted(step *StepDefinition, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step.ID)
	if err != nil {
		o.failed = append(o.failed, step.ID)
	}
}

func TestRunner_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	_, err := NewRunner(newStub(), WithObserver(obs)).Run(context.Background(), RunInput{
		X:     matrix4x3(),
		Steps: []StepDefinition{transformStep("a", "AddOne"), transformStep("b", "Fail")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, obs.steps)
	assert.Equal(t, []string{"b"}, obs.failed)
}

func TestRunner_WithDefaultRegistry(t *testing.T) {
	x := mat.NewDense(6, 4, []float64{
		1, 2, 3, 4,
		2, 3, 4, 5,
		3, 5, 7, 9,
		1, 1, 2, 2,
		4, 3, 2, 1,
		2, 4, 6, 8,
	})
	res, err := NewRunner(operators.NewDefaultRegistry()).Run(context.Background(), RunInput{
		X: x,
		Y: []float64{1, 2, 3, 4, 5, 6},
		Steps: []StepDefinition{
			{ID: "snv", Type: operators.KindTransform, Name: "SNV"},
			{ID: "kf", Type: operators.KindSplit, Name: "KFold", Params: operators.Params{"n_splits": 3}},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success(), "errors: %v", res.Errors)
	assert.Equal(t, 3, res.Folds.NFolds)
	for _, l := range res.Folds.FoldLabels {
		assert.NotEqual(t, -1, l)
	}
}
