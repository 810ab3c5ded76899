package numeric

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors returned by PCA.
var (
	ErrTooFewSamples = errors.New("pca: at least 2 samples are required")
	ErrZeroVariance  = errors.New("pca: data has zero variance")
	ErrSVDFailed     = errors.New("pca: SVD did not converge")
)

// PCAResult holds the projection of every row onto the leading components.
type PCAResult struct {
	// Scores is n x k.
	Scores *mat.Dense
	// Components is d x k, one unit loading vector per column.
	Components *mat.Dense
	// ExplainedVariance is s²/(n-1) for each kept component.
	ExplainedVariance []float64
	// ExplainedVarianceRatio divides each variance by the total variance.
	ExplainedVarianceRatio []float64
}

// PCA computes the leading k principal components of x from a thin SVD of
// the column-centred matrix. k is clamped to min(n, d). Each component is
// oriented so that its largest-magnitude loading is positive.
func PCA(x *mat.Dense, k int) (*PCAResult, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, ErrTooFewSamples
	}
	if k > n {
		k = n
	}
	if k > d {
		k = d
	}
	if k < 1 {
		return nil, fmt.Errorf("pca: invalid component count %d", k)
	}

	centered := mat.DenseCopyOf(x)
	for j := 0; j < d; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += centered.At(i, j)
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}
	values := svd.Values(nil)

	total := 0.0
	for _, s := range values {
		total += s * s
	}
	total /= float64(n - 1)
	if total <= 0 || math.IsNaN(total) {
		return nil, ErrZeroVariance
	}

	var v mat.Dense
	svd.VTo(&v)
	components := mat.DenseCopyOf(v.Slice(0, d, 0, k))

	explained := make([]float64, k)
	ratio := make([]float64, k)
	for c := 0; c < k; c++ {
		explained[c] = values[c] * values[c] / float64(n-1)
		ratio[c] = explained[c] / total

		maxAbs, sign := 0.0, 1.0
		for i := 0; i < d; i++ {
			if a := math.Abs(components.At(i, c)); a > maxAbs {
				maxAbs = a
				sign = math.Copysign(1, components.At(i, c))
			}
		}
		if sign < 0 {
			for i := 0; i < d; i++ {
				components.Set(i, c, -components.At(i, c))
			}
		}
	}

	scores := mat.NewDense(n, k, nil)
	scores.Mul(centered, components)

	return &PCAResult{
		Scores:                 scores,
		Components:             components,
		ExplainedVariance:      explained,
		ExplainedVarianceRatio: ratio,
	}, nil
}
