// Package operators defines the transform and split operator contracts used
// by the preview runner, the registry that resolves operators by name, and
// the built-in catalog of spectral preprocessing and cross-validation
// operators.
package operators

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Kind distinguishes transform operators from split operators.
type Kind string

const (
	KindTransform Kind = "transform"
	KindSplit     Kind = "split"
)

// Params is the JSON object supplied with a step.
type Params map[string]interface{}

// Transformer fits on a matrix and returns the transformed matrix. The
// input must not be modified.
type Transformer interface {
	FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, x *mat.Dense) (*mat.Dense, error)

// FitTransform calls f(ctx, x).
func (f TransformerFunc) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	return f(ctx, x)
}

// Fold is one train/test partition. Indices are row positions of the
// matrix passed to Split.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter partitions rows into folds. y may be nil.
type Splitter interface {
	Split(ctx context.Context, x *mat.Dense, y []float64) ([]Fold, error)
}

// SplitterFunc adapts a function to the Splitter interface.
type SplitterFunc func(ctx context.Context, x *mat.Dense, y []float64) ([]Fold, error)

// Split calls f(ctx, x, y).
func (f SplitterFunc) Split(ctx context.Context, x *mat.Dense, y []float64) ([]Fold, error) {
	return f(ctx, x, y)
}

// TransformerFactory builds configured transformers.
type TransformerFactory interface {
	GetType() string
	Description() string
	Create(params Params) (Transformer, error)
}

// SplitterFactory builds configured splitters.
type SplitterFactory interface {
	GetType() string
	Description() string
	Create(params Params) (Splitter, error)
}

// Resolver turns a step's operator name and parameters into a ready operator.
type Resolver interface {
	ResolveTransformer(name string, params Params) (Transformer, error)
	ResolveSplitter(name string, params Params) (Splitter, error)
}
