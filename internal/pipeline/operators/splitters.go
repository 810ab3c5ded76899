package operators

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/numeric"

	"gonum.org/v1/gonum/mat"
)

func registerBuiltinSplitters(r *Registry) {
	must(r.RegisterSplitter(NewSplitterFactory("KFold",
		"Consecutive folds, optionally shuffled; every sample is tested once",
		func() kfoldParams { return kfoldParams{NSplits: 5} },
		func(p kfoldParams) (Splitter, error) { return &kfold{p}, nil },
	)))

	must(r.RegisterSplitter(NewSplitterFactory("ShuffleSplit",
		"Independent random train/test splits; test sets may overlap",
		func() shuffleSplitParams { return shuffleSplitParams{NSplits: 5, TestSize: 0.25} },
		func(p shuffleSplitParams) (Splitter, error) { return &shuffleSplit{p}, nil },
	)))

	must(r.RegisterSplitter(NewSplitterFactory("StratifiedKFold",
		"K folds balanced over quantile bins of the target",
		func() stratifiedKFoldParams { return stratifiedKFoldParams{NSplits: 5, NBins: 5} },
		func(p stratifiedKFoldParams) (Splitter, error) { return &stratifiedKFold{p}, nil },
	)))

	must(r.RegisterSplitter(NewSplitterFactory("KennardStone",
		"Single split whose training set spans the feature space by max-min distance",
		func() kennardStoneParams { return kennardStoneParams{TestSize: 0.25} },
		func(p kennardStoneParams) (Splitter, error) { return &kennardStone{p}, nil },
	)))
}

// complement returns the sorted indices of [0,n) not in test.
func complement(n int, test []int) []int {
	in := make([]bool, n)
	for _, i := range test {
		in[i] = true
	}
	out := make([]int, 0, n-len(test))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

func sortedCopy(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}

func testCount(n int, testSize float64) (int, error) {
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return 0, errors.ValidationErrorf("test_size %g leaves an empty train or test set for %d samples", testSize, n)
	}
	return nTest, nil
}

type kfoldParams struct {
	NSplits     int   `json:"n_splits" validate:"min=2"`
	Shuffle     bool  `json:"shuffle"`
	RandomState int64 `json:"random_state"`
}

type kfold struct{ p kfoldParams }

func (s *kfold) Split(_ context.Context, x *mat.Dense, _ []float64) ([]Fold, error) {
	n, _ := x.Dims()
	k := s.p.NSplits
	if k > n {
		return nil, errors.ValidationErrorf("n_splits=%d cannot exceed the number of samples %d", k, n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if s.p.Shuffle {
		order = rand.New(rand.NewSource(s.p.RandomState)).Perm(n)
	}

	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := sortedCopy(order[start : start+size])
		folds = append(folds, Fold{Train: complement(n, test), Test: test})
		start += size
	}
	return folds, nil
}

type shuffleSplitParams struct {
	NSplits     int     `json:"n_splits" validate:"min=1"`
	TestSize    float64 `json:"test_size" validate:"gt=0,lt=1"`
	RandomState int64   `json:"random_state"`
}

type shuffleSplit struct{ p shuffleSplitParams }

func (s *shuffleSplit) Split(_ context.Context, x *mat.Dense, _ []float64) ([]Fold, error) {
	n, _ := x.Dims()
	nTest, err := testCount(n, s.p.TestSize)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.p.RandomState))
	folds := make([]Fold, 0, s.p.NSplits)
	for f := 0; f < s.p.NSplits; f++ {
		perm := rng.Perm(n)
		test := sortedCopy(perm[:nTest])
		folds = append(folds, Fold{Train: sortedCopy(perm[nTest:]), Test: test})
	}
	return folds, nil
}

type stratifiedKFoldParams struct {
	NSplits     int   `json:"n_splits" validate:"min=2"`
	NBins       int   `json:"n_bins" validate:"min=1"`
	Shuffle     bool  `json:"shuffle"`
	RandomState int64 `json:"random_state"`
}

type stratifiedKFold struct{ p stratifiedKFoldParams }

// Split deals the members of each target bin round-robin over the folds,
// continuing the rotation across bins so fold sizes stay balanced.
func (s *stratifiedKFold) Split(_ context.Context, x *mat.Dense, y []float64) ([]Fold, error) {
	n, _ := x.Dims()
	if len(y) != n {
		return nil, errors.ValidationError("StratifiedKFold requires a target with one value per sample")
	}
	k := s.p.NSplits
	if k > n {
		return nil, errors.ValidationErrorf("n_splits=%d cannot exceed the number of samples %d", k, n)
	}

	labels, nBins := numeric.QuantileBins(y, s.p.NBins)
	members := make([][]int, nBins)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}

	var rng *rand.Rand
	if s.p.Shuffle {
		rng = rand.New(rand.NewSource(s.p.RandomState))
	}

	tests := make([][]int, k)
	next := 0
	for _, bin := range members {
		if rng != nil {
			rng.Shuffle(len(bin), func(a, b int) { bin[a], bin[b] = bin[b], bin[a] })
		}
		for _, i := range bin {
			tests[next] = append(tests[next], i)
			next = (next + 1) % k
		}
	}

	folds := make([]Fold, k)
	for f, test := range tests {
		test = sortedCopy(test)
		folds[f] = Fold{Train: complement(n, test), Test: test}
	}
	return folds, nil
}

type kennardStoneParams struct {
	TestSize float64 `json:"test_size" validate:"gt=0,lt=1"`
}

type kennardStone struct{ p kennardStoneParams }

// Split seeds the training set with the two most distant samples, then
// repeatedly adds the sample farthest from its nearest training sample.
func (s *kennardStone) Split(ctx context.Context, x *mat.Dense, _ []float64) ([]Fold, error) {
	n, _ := x.Dims()
	nTest, err := testCount(n, s.p.TestSize)
	if err != nil {
		return nil, err
	}
	nTrain := n - nTest

	dist := func(a, b int) float64 {
		ra, rb := x.RawRowView(a), x.RawRowView(b)
		sum := 0.0
		for j := range ra {
			d := ra[j] - rb[j]
			sum += d * d
		}
		return sum
	}

	first, second, best := 0, 0, -1.0
	for a := 0; a < n; a++ {
		if a%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for b := a + 1; b < n; b++ {
			if d := dist(a, b); d > best {
				first, second, best = a, b, d
			}
		}
	}

	selected := make([]bool, n)
	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	add := func(i int) {
		selected[i] = true
		for j := 0; j < n; j++ {
			if !selected[j] {
				if d := dist(i, j); d < minDist[j] {
					minDist[j] = d
				}
			}
		}
	}

	train := []int{first}
	add(first)
	if nTrain > 1 {
		train = append(train, second)
		add(second)
	}
	for len(train) < nTrain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pick, far := -1, -1.0
		for j := 0; j < n; j++ {
			if !selected[j] && minDist[j] > far {
				pick, far = j, minDist[j]
			}
		}
		train = append(train, pick)
		add(pick)
	}

	train = sortedCopy(train)
	return []Fold{{Train: train, Test: complement(n, train)}}, nil
}
