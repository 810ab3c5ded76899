package analysis

import (
	"spectral-workbench/internal/numeric"

	"gonum.org/v1/gonum/mat"
)

// MaxComponents is the largest projection rank returned.
const MaxComponents = 3

// Projection is the principal component view of a processed matrix. When
// the decomposition fails only Error is set.
type Projection struct {
	Coordinates            [][]float64 `json:"coordinates,omitempty"`
	ExplainedVariance      []float64   `json:"explained_variance,omitempty"`
	ExplainedVarianceRatio []float64   `json:"explained_variance_ratio,omitempty"`
	NComponents            int         `json:"n_components,omitempty"`
	Y                      []float64   `json:"y,omitempty"`
	FoldLabels             []int       `json:"fold_labels,omitempty"`
	Error                  string      `json:"error,omitempty"`
}

// Project computes up to MaxComponents principal components of x. y and
// foldLabels, when given, are attached for colouring.
func Project(x *mat.Dense, y []float64, foldLabels []int) *Projection {
	n, c := x.Dims()
	k := MaxComponents
	if n < k {
		k = n
	}
	if c < k {
		k = c
	}

	res, err := numeric.PCA(x, k)
	if err != nil {
		return &Projection{Error: err.Error()}
	}

	return &Projection{
		Coordinates:            numeric.ToRows(res.Scores),
		ExplainedVariance:      res.ExplainedVariance,
		ExplainedVarianceRatio: res.ExplainedVarianceRatio,
		NComponents:            len(res.ExplainedVariance),
		Y:                      y,
		FoldLabels:             foldLabels,
	}
}
