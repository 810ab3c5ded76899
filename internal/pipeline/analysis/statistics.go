// Package analysis computes the descriptive statistics and principal
// component projection attached to preview responses.
package analysis

import (
	"spectral-workbench/internal/numeric"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GlobalStatistics aggregates every value of a matrix
type GlobalStatistics struct {
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	NSamples  int     `json:"n_samples"`
	NFeatures int     `json:"n_features"`
}

// Statistics holds per-feature summaries, restricted to the returned
// features, plus the global aggregate over the whole matrix.
type Statistics struct {
	Mean   []float64        `json:"mean"`
	Std    []float64        `json:"std"`
	Min    []float64        `json:"min"`
	Max    []float64        `json:"max"`
	P5     []float64        `json:"p5"`
	P95    []float64        `json:"p95"`
	Global GlobalStatistics `json:"global"`
}

// FeatureIndices returns the feature columns kept when at most maxReturned
// features are sent back. maxReturned <= 0 keeps all of them.
func FeatureIndices(nFeatures, maxReturned int) []int {
	return numeric.EvenIndices(nFeatures, maxReturned)
}

// ComputeStatistics summarizes x. Per-feature arrays follow cols; the
// global block always covers every feature.
func ComputeStatistics(x *mat.Dense, cols []int) *Statistics {
	n, c := x.Dims()
	s := &Statistics{
		Mean: make([]float64, len(cols)),
		Std:  make([]float64, len(cols)),
		Min:  make([]float64, len(cols)),
		Max:  make([]float64, len(cols)),
		P5:   make([]float64, len(cols)),
		P95:  make([]float64, len(cols)),
	}

	for k, j := range cols {
		col := numeric.Column(x, j)
		s.Mean[k], s.Std[k] = stat.PopMeanStdDev(col, nil)
		sorted := numeric.SortedCopy(col)
		s.Min[k] = sorted[0]
		s.Max[k] = sorted[len(sorted)-1]
		s.P5[k] = numeric.Percentile(sorted, 5)
		s.P95[k] = numeric.Percentile(sorted, 95)
	}

	all := mat.DenseCopyOf(x).RawMatrix().Data
	s.Global = GlobalStatistics{NSamples: n, NFeatures: c}
	s.Global.Mean, s.Global.Std = stat.PopMeanStdDev(all, nil)
	s.Global.Min = floats.Min(all)
	s.Global.Max = floats.Max(all)
	return s
}
