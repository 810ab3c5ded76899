package operators

import (
	"context"
	"testing"

	"spectral-workbench/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDefaultRegistry_Catalog(t *testing.T) {
	r := NewDefaultRegistry()
	catalog := r.Catalog()

	names := func(infos []Info) []string {
		out := make([]string, len(infos))
		for i, info := range infos {
			out[i] = info.Name
		}
		return out
	}

	assert.Equal(t, []string{
		"CropTransformer", "Derivative", "Detrend", "LogTransform", "MinMaxScaler",
		"MultiplicativeScatterCorrection", "Normalize", "RobustScaler", "SavitzkyGolay",
		"StandardNormalVariate", "StandardScaler",
	}, names(catalog.Transforms))
	assert.Equal(t, []string{"KFold", "KennardStone", "ShuffleSplit", "StratifiedKFold"}, names(catalog.Splitters))

	for _, info := range catalog.Transforms {
		assert.Equal(t, KindTransform, info.Kind)
		assert.NotEmpty(t, info.Description)
		if info.Name == "StandardNormalVariate" {
			assert.Equal(t, []string{"SNV"}, info.Aliases)
		}
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewDefaultRegistry()

	t.Run("alias resolves", func(t *testing.T) {
		tr, err := r.ResolveTransformer("SNV", nil)
		require.NoError(t, err)
		assert.IsType(t, &snv{}, tr)
	})

	t.Run("unknown transform is not found", func(t *testing.T) {
		_, err := r.ResolveTransformer("NoSuchOp", nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
		assert.Contains(t, err.Error(), "transform operator NoSuchOp not found")
	})

	t.Run("wrong kind carries a hint", func(t *testing.T) {
		_, err := r.ResolveTransformer("KFold", nil)
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, "KFold is a split operator", appErr.Context["hint"])

		_, err = r.ResolveSplitter("MSC", nil)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("unknown params are rejected", func(t *testing.T) {
		_, err := r.ResolveSplitter("KFold", Params{"n_folds": 3})
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidParams, appErr.Code)
		assert.Contains(t, err.Error(), "n_folds")
	})

	t.Run("params are validated", func(t *testing.T) {
		_, err := r.ResolveSplitter("KFold", Params{"n_splits": 1})
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

		_, err = r.ResolveTransformer("SavitzkyGolay", Params{"window_length": 4})
		assert.ErrorContains(t, err, "odd")

		_, err = r.ResolveTransformer("SavitzkyGolay", Params{"window_length": 5, "polyorder": 5})
		assert.ErrorContains(t, err, "polyorder")

		_, err = r.ResolveTransformer("SavitzkyGolay", Params{"window_length": 5, "polyorder": 1, "deriv": 2})
		assert.ErrorContains(t, err, "deriv must not exceed polyorder")

		_, err = r.ResolveTransformer("Normalize", Params{"norm": "l3"})
		assert.Error(t, err)

		_, err = r.ResolveTransformer("MinMaxScaler", Params{"feature_range": []interface{}{1, 0}})
		assert.Error(t, err)
	})

	t.Run("params override defaults", func(t *testing.T) {
		sp, err := r.ResolveSplitter("KFold", Params{"n_splits": 3})
		require.NoError(t, err)
		folds, err := sp.Split(context.Background(), mat.NewDense(9, 1, nil), nil)
		require.NoError(t, err)
		assert.Len(t, folds, 3)
	})
}

func TestRegistry_CustomOperator(t *testing.T) {
	r := NewRegistry()
	type scaleParams struct {
		Factor float64 `json:"factor" validate:"gt=0"`
	}
	require.NoError(t, r.RegisterTransformer(NewTransformerFactory("Scale", "multiply",
		func() scaleParams { return scaleParams{Factor: 1} },
		func(p scaleParams) (Transformer, error) {
			return TransformerFunc(func(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
				var out mat.Dense
				out.Scale(p.Factor, x)
				return &out, nil
			}), nil
		}), "Times"))

	tr, err := r.ResolveTransformer("Times", Params{"factor": 2.0})
	require.NoError(t, err)
	out, err := tr.FitTransform(context.Background(), mat.NewDense(1, 2, []float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, out.RawRowView(0))

	assert.Error(t, r.RegisterTransformer(NewTransformerFactory("Other", "", func() scaleParams { return scaleParams{} },
		func(scaleParams) (Transformer, error) { return nil, nil }), "Scale"))
}
