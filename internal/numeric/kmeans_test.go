package numeric

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func threeBlobs() *mat.Dense {
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	rng := rand.New(rand.NewSource(7))
	data := make([]float64, 0, 60*2)
	for _, c := range centers {
		for i := 0; i < 20; i++ {
			data = append(data, c[0]+rng.NormFloat64()*0.1, c[1]+rng.NormFloat64()*0.1)
		}
	}
	return mat.NewDense(60, 2, data)
}

func TestKMeans_FindsBlobs(t *testing.T) {
	x := threeBlobs()
	res, err := KMeans(x, 3, 100, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	for blob := 0; blob < 3; blob++ {
		label := res.Labels[blob*20]
		for i := blob * 20; i < (blob+1)*20; i++ {
			assert.Equal(t, label, res.Labels[i])
		}
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[20])
	assert.NotEqual(t, res.Labels[20], res.Labels[40])
}

func TestKMeans_Deterministic(t *testing.T) {
	x := threeBlobs()
	a, err := KMeans(x, 4, 100, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	b, err := KMeans(x, 4, 100, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, a.Labels, b.Labels)
	assert.True(t, mat.Equal(a.Centroids, b.Centroids))
}

func TestKMeans_Errors(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 2})
	_, err := KMeans(x, 3, 10, rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	_, err = KMeans(mat.NewDense(2, 1, []float64{1, math.NaN()}), 1, 10, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestKMeans_DuplicatePoints(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	res, err := KMeans(x, 3, 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, res.Labels, 4)
}

func TestNearestDistinct(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 0.1, 5, 10})
	centroids := mat.NewDense(3, 1, []float64{0, 0, 9})

	idx := NearestDistinct(x, centroids)
	require.Len(t, idx, 3)
	assert.Equal(t, []int{0, 1, 3}, idx)

	sorted := append([]int(nil), idx...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		assert.NotEqual(t, sorted[i-1], sorted[i])
	}
}
