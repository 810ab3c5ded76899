package numeric

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeansResult holds fitted centroids (k x d) and the cluster of every row.
type KMeansResult struct {
	Centroids  *mat.Dense
	Labels     []int
	Iterations int
}

// KMeans clusters the rows of x into k groups with k-means++ seeding
// followed by Lloyd iterations. rng drives the seeding so results are
// reproducible for a fixed seed. A cluster that loses all members keeps
// its previous centroid.
func KMeans(x *mat.Dense, k, maxIter int, rng *rand.Rand) (*KMeansResult, error) {
	n, d := x.Dims()
	if k < 1 || k > n {
		return nil, fmt.Errorf("kmeans: k=%d out of range for %d samples", k, n)
	}
	if !AllFinite(x) {
		return nil, fmt.Errorf("kmeans: input contains non-finite values")
	}

	centroids := mat.NewDense(k, d, nil)
	initCenters(x, centroids, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	counts := make([]int, k)
	sums := mat.NewDense(k, d, nil)

	iter := 0
	for ; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best := nearest(x.RawRowView(i), centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums.Zero()
		for c := range counts {
			counts[c] = 0
		}
		for i := 0; i < n; i++ {
			floats.Add(sums.RawRowView(labels[i]), x.RawRowView(i))
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			row := sums.RawRowView(c)
			floats.Scale(1/float64(counts[c]), row)
			centroids.SetRow(c, row)
		}
	}

	return &KMeansResult{Centroids: centroids, Labels: labels, Iterations: iter}, nil
}

// initCenters picks the first center uniformly and each following one with
// probability proportional to its squared distance from the nearest chosen
// center.
func initCenters(x, centroids *mat.Dense, rng *rand.Rand) {
	n, _ := x.Dims()
	k, _ := centroids.Dims()

	first := rng.Intn(n)
	centroids.SetRow(0, x.RawRowView(first))

	distSq := make([]float64, n)
	for i := range distSq {
		distSq[i] = math.Inf(1)
	}

	for c := 1; c < k; c++ {
		prev := centroids.RawRowView(c - 1)
		total := 0.0
		for i := 0; i < n; i++ {
			d2 := sqDist(x.RawRowView(i), prev)
			if d2 < distSq[i] {
				distSq[i] = d2
			}
			total += distSq[i]
		}

		// All remaining points coincide with a center; any choice is equivalent.
		if total == 0 {
			centroids.SetRow(c, x.RawRowView(rng.Intn(n)))
			continue
		}

		r := rng.Float64() * total
		cumulative := 0.0
		chosen := n - 1
		for i, d2 := range distSq {
			cumulative += d2
			if cumulative >= r {
				chosen = i
				break
			}
		}
		centroids.SetRow(c, x.RawRowView(chosen))
	}
}

// NearestDistinct returns, for each centroid in order, the index of the
// closest row of x not already chosen for an earlier centroid.
func NearestDistinct(x, centroids *mat.Dense) []int {
	n, _ := x.Dims()
	k, _ := centroids.Dims()
	taken := make([]bool, n)
	out := make([]int, 0, k)
	for c := 0; c < k && len(out) < n; c++ {
		center := centroids.RawRowView(c)
		best, bestDist := -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if taken[i] {
				continue
			}
			if d2 := sqDist(x.RawRowView(i), center); d2 < bestDist {
				best, bestDist = i, d2
			}
		}
		taken[best] = true
		out = append(out, best)
	}
	return out
}

// nearest returns the index of the centroid closest to row.
func nearest(row []float64, centroids *mat.Dense) int {
	k, _ := centroids.Dims()
	best, bestDist := 0, math.Inf(1)
	for c := 0; c < k; c++ {
		if d2 := sqDist(row, centroids.RawRowView(c)); d2 < bestDist {
			best, bestDist = c, d2
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
