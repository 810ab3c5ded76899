// Package folds turns splitter output into per-fold descriptors and a
// per-sample fold label vector.
package folds

import (
	"fmt"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/numeric"
	"spectral-workbench/internal/pipeline/operators"
)

// Unassigned labels a sample that is in no selected test set.
const Unassigned = -1

// Descriptor summarizes one train/test partition. Indices are positions in
// the matrix the splitter saw.
type Descriptor struct {
	Fold         int              `json:"fold"`
	TrainCount   int              `json:"train_count"`
	TestCount    int              `json:"test_count"`
	TrainIndices []int            `json:"train_indices"`
	TestIndices  []int            `json:"test_indices"`
	YTrainStats  *numeric.Summary `json:"y_train_stats,omitempty"`
	YTestStats   *numeric.Summary `json:"y_test_stats,omitempty"`
}

// Info is the fold block of a preview response.
type Info struct {
	Splitter           string       `json:"splitter"`
	NFolds             int          `json:"n_folds"`
	Folds              []Descriptor `json:"folds"`
	FoldLabels         []int        `json:"fold_labels"`
	SplitIndex         *int         `json:"split_index,omitempty"`
	OverlappingSamples int          `json:"overlapping_samples"`
}

// Assign builds fold descriptors and labels for n samples. y may be nil.
//
// With selected set, only that fold's test indices are labelled, and an
// out-of-range selection labels nothing. Otherwise each fold's test
// indices are written in order, so a sample in several test sets keeps
// the last fold's label; OverlappingSamples counts those samples.
func Assign(splitter string, folds []operators.Fold, y []float64, n int, selected *int) (*Info, error) {
	info := &Info{
		Splitter:   splitter,
		NFolds:     len(folds),
		Folds:      make([]Descriptor, 0, len(folds)),
		FoldLabels: make([]int, n),
		SplitIndex: selected,
	}
	for i := range info.FoldLabels {
		info.FoldLabels[i] = Unassigned
	}

	hasY := y != nil && len(y) == n
	for k, f := range folds {
		if err := checkRange(f.Train, n, k, "train"); err != nil {
			return nil, err
		}
		if err := checkRange(f.Test, n, k, "test"); err != nil {
			return nil, err
		}

		d := Descriptor{
			Fold:         k,
			TrainCount:   len(f.Train),
			TestCount:    len(f.Test),
			TrainIndices: nonNil(f.Train),
			TestIndices:  nonNil(f.Test),
		}
		if hasY {
			d.YTrainStats = summarize(y, f.Train)
			d.YTestStats = summarize(y, f.Test)
		}
		info.Folds = append(info.Folds, d)
	}

	if selected != nil {
		if s := *selected; s >= 0 && s < len(folds) {
			for _, i := range folds[s].Test {
				info.FoldLabels[i] = s
			}
		}
		return info, nil
	}

	overlapped := make(map[int]struct{})
	for k, f := range folds {
		for _, i := range f.Test {
			if info.FoldLabels[i] != Unassigned && info.FoldLabels[i] != k {
				overlapped[i] = struct{}{}
			}
			info.FoldLabels[i] = k
		}
	}
	info.OverlappingSamples = len(overlapped)
	return info, nil
}

func checkRange(idx []int, n, fold int, part string) error {
	for _, i := range idx {
		if i < 0 || i >= n {
			return errors.ExecutionError(
				fmt.Sprintf("fold %d %s index %d out of range for %d samples", fold, part, i, n), nil).
				WithContext("fold", fold)
		}
	}
	return nil
}

func summarize(y []float64, idx []int) *numeric.Summary {
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = y[i]
	}
	s, ok := numeric.Summarize(vals)
	if !ok {
		return nil
	}
	return &s
}

func nonNil(idx []int) []int {
	if idx == nil {
		return []int{}
	}
	return idx
}
