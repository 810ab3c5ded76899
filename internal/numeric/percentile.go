package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0..100) of sorted using linear
// interpolation between the closest ranks, rank = p/100*(n-1).
//
// gonum's stat.Quantile offers only the empirical and LinInterp (type 4)
// estimators, so the type 7 estimator is computed here.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// SortedCopy returns xs sorted ascending without modifying xs.
func SortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// Summary is the mean, population standard deviation, minimum and maximum
// of a set of values.
type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summarize computes a Summary. It returns false for an empty input.
func Summarize(xs []float64) (Summary, bool) {
	if len(xs) == 0 {
		return Summary{}, false
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	return Summary{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}, true
}

// QuantileBins assigns each value of y to one of at most maxBins quantile
// bins. Bin edges are the type 7 percentiles at i/maxBins; duplicate edges
// collapse, so fewer bins may result. Values equal to an interior edge go
// to the upper bin. It returns the label of every value and the number of
// bins actually formed.
func QuantileBins(y []float64, maxBins int) ([]int, int) {
	labels := make([]int, len(y))
	if len(y) == 0 || maxBins < 1 {
		return labels, 0
	}

	sorted := SortedCopy(y)
	edges := make([]float64, 0, maxBins+1)
	for i := 0; i <= maxBins; i++ {
		e := Percentile(sorted, 100*float64(i)/float64(maxBins))
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}

	nBins := len(edges) - 1
	if nBins < 1 {
		return labels, 1
	}

	interior := edges[1:nBins]
	for i, v := range y {
		labels[i] = sort.Search(len(interior), func(k int) bool { return interior[k] > v })
	}
	return labels, nBins
}
