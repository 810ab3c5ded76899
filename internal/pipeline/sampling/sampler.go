// Package sampling picks the subset of rows a preview runs on.
package sampling

import (
	"math/rand"
	"sort"

	"spectral-workbench/internal/numeric"

	"gonum.org/v1/gonum/mat"
)

// Method names a sampling strategy.
type Method string

const (
	MethodAll        Method = "all"
	MethodRandom     Method = "random"
	MethodStratified Method = "stratified"
	MethodKMeans     Method = "kmeans"
)

const (
	DefaultNSamples = 100
	DefaultSeed     = 42

	maxStratBins  = 5
	kmeansMaxIter = 100
	// kmeansMaxFeatures caps the evenly spaced features clustering runs on.
	kmeansMaxFeatures = 64
)

// Config selects the strategy and subset size.
type Config struct {
	Method   Method `json:"method" validate:"sampling_method"`
	NSamples int    `json:"n_samples" validate:"min=1"`
	Seed     int64  `json:"seed"`
}

// DefaultConfig returns random sampling of 100 rows with seed 42.
func DefaultConfig() Config {
	return Config{Method: MethodRandom, NSamples: DefaultNSamples, Seed: DefaultSeed}
}

// Result is the chosen row indices, ascending, and the strategy that
// produced them. MethodUsed differs from the requested method when the
// request degenerated to all rows or fell back to random.
type Result struct {
	Indices    []int
	MethodUsed Method
}

// Select picks row indices of x. y may be nil.
func Select(x *mat.Dense, y []float64, cfg Config) Result {
	n, _ := x.Dims()
	method := cfg.Method
	if method == "" {
		method = MethodRandom
	}

	if method == MethodAll || cfg.NSamples >= n {
		return Result{Indices: allIndices(n), MethodUsed: MethodAll}
	}

	k := cfg.NSamples
	switch method {
	case MethodStratified:
		if idx, ok := stratified(y, n, k, cfg.Seed); ok {
			return Result{Indices: idx, MethodUsed: MethodStratified}
		}
	case MethodKMeans:
		if idx, ok := kmeansRepresentatives(x, k, cfg.Seed); ok {
			return Result{Indices: idx, MethodUsed: MethodKMeans}
		}
	}
	return Result{Indices: random(n, k, cfg.Seed), MethodUsed: MethodRandom}
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func random(n, k int, seed int64) []int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	idx := append([]int(nil), perm[:k]...)
	sort.Ints(idx)
	return idx
}

// stratified draws from up to five quantile bins of y in proportion to
// their sizes, assigning leftover slots by largest remainder. It reports
// false when y is missing or the bins are too small to stratify.
func stratified(y []float64, n, k int, seed int64) ([]int, bool) {
	if len(y) != n || !numeric.FiniteSlice(y) {
		return nil, false
	}
	maxBins := maxStratBins
	if n/2 < maxBins {
		maxBins = n / 2
	}
	if maxBins < 2 {
		return nil, false
	}

	labels, nBins := numeric.QuantileBins(y, maxBins)
	if nBins < 2 {
		return nil, false
	}
	members := make([][]int, nBins)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	for _, m := range members {
		if len(m) < 2 {
			return nil, false
		}
	}

	alloc := make([]int, nBins)
	type remainder struct {
		bin  int
		frac float64
	}
	rems := make([]remainder, nBins)
	assigned := 0
	for b, m := range members {
		quota := float64(k) * float64(len(m)) / float64(n)
		alloc[b] = int(quota)
		assigned += alloc[b]
		rems[b] = remainder{bin: b, frac: quota - float64(alloc[b])}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < k && i < len(rems); i++ {
		b := rems[i].bin
		if alloc[b] < len(members[b]) {
			alloc[b]++
			assigned++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	idx := make([]int, 0, k)
	for b, m := range members {
		perm := rng.Perm(len(m))
		for _, p := range perm[:alloc[b]] {
			idx = append(idx, m[p])
		}
	}
	sort.Ints(idx)
	return idx, true
}

// kmeansRepresentatives clusters rows into k groups and returns, for each
// centroid, the nearest row not already chosen.
func kmeansRepresentatives(x *mat.Dense, k int, seed int64) ([]int, bool) {
	_, c := x.Dims()
	features := x
	if c > kmeansMaxFeatures {
		strided, err := numeric.FromRows(numeric.ToRowsColumns(x, numeric.EvenIndices(c, kmeansMaxFeatures)))
		if err != nil {
			return nil, false
		}
		features = strided
	}

	res, err := numeric.KMeans(features, k, kmeansMaxIter, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, false
	}
	idx := numeric.NearestDistinct(features, res.Centroids)
	if len(idx) != k {
		return nil, false
	}
	sort.Ints(idx)
	return idx, true
}
