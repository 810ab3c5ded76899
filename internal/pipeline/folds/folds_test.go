package folds

import (
	"testing"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/pipeline/operators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFolds() []operators.Fold {
	return []operators.Fold{
		{Train: []int{2, 3}, Test: []int{0, 1}},
		{Train: []int{0, 1}, Test: []int{2, 3}},
	}
}

func TestAssign_DisjointFolds(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	info, err := Assign("KFold", twoFolds(), y, 4, nil)
	require.NoError(t, err)

	assert.Equal(t, "KFold", info.Splitter)
	assert.Equal(t, 2, info.NFolds)
	assert.Equal(t, []int{0, 0, 1, 1}, info.FoldLabels)
	assert.Zero(t, info.OverlappingSamples)
	assert.Nil(t, info.SplitIndex)

	require.Len(t, info.Folds, 2)
	f0 := info.Folds[0]
	assert.Equal(t, 0, f0.Fold)
	assert.Equal(t, 2, f0.TrainCount)
	assert.Equal(t, 2, f0.TestCount)
	require.NotNil(t, f0.YTestStats)
	assert.InDelta(t, 1.5, f0.YTestStats.Mean, 1e-12)
	assert.InDelta(t, 0.5, f0.YTestStats.Std, 1e-12)
	assert.Equal(t, 3.0, f0.YTrainStats.Min)
	assert.Equal(t, 4.0, f0.YTrainStats.Max)
}

func TestAssign_WithoutTarget(t *testing.T) {
	info, err := Assign("KFold", twoFolds(), nil, 4, nil)
	require.NoError(t, err)
	assert.Nil(t, info.Folds[0].YTrainStats)
	assert.Nil(t, info.Folds[0].YTestStats)
}

func TestAssign_SelectedFold(t *testing.T) {
	sel := 1
	info, err := Assign("KFold", twoFolds(), nil, 4, &sel)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -1, 1, 1}, info.FoldLabels)
	require.NotNil(t, info.SplitIndex)
	assert.Equal(t, 1, *info.SplitIndex)
	assert.Len(t, info.Folds, 2)
}

func TestAssign_SelectedOutOfRangeLabelsNothing(t *testing.T) {
	for _, sel := range []int{-1, 2, 10} {
		s := sel
		info, err := Assign("KFold", twoFolds(), nil, 4, &s)
		require.NoError(t, err)
		assert.Equal(t, []int{-1, -1, -1, -1}, info.FoldLabels)
	}
}

func TestAssign_OverlapLastFoldWins(t *testing.T) {
	folds := []operators.Fold{
		{Train: []int{2, 3, 4}, Test: []int{0, 1}},
		{Train: []int{0, 3, 4}, Test: []int{1, 2}},
		{Train: []int{0, 1, 4}, Test: []int{2, 3}},
	}
	info, err := Assign("ShuffleSplit", folds, nil, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 2, -1}, info.FoldLabels)
	assert.Equal(t, 2, info.OverlappingSamples)
}

func TestAssign_IndexOutOfRange(t *testing.T) {
	folds := []operators.Fold{{Train: []int{0}, Test: []int{5}}}
	_, err := Assign("Broken", folds, nil, 3, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeExecution))
	assert.Contains(t, err.Error(), "test index 5")
}

func TestAssign_EmptyPartitionsSerializeAsArrays(t *testing.T) {
	folds := []operators.Fold{{Test: []int{0}}}
	info, err := Assign("Custom", folds, []float64{1}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{}, info.Folds[0].TrainIndices)
	assert.Nil(t, info.Folds[0].YTrainStats)
	assert.NotNil(t, info.Folds[0].YTestStats)
}
