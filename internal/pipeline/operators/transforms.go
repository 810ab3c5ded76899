package operators

import (
	"context"
	"fmt"
	"math"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/numeric"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ctxCheckEvery bounds how many rows are processed between cancellation checks.
const ctxCheckEvery = 128

func registerBuiltinTransforms(r *Registry) {
	must(r.RegisterTransformer(NewTransformerFactory("StandardNormalVariate",
		"Centre each spectrum and divide by its standard deviation",
		func() snvParams { return snvParams{WithMean: true, WithStd: true} },
		func(p snvParams) (Transformer, error) { return &snv{p}, nil },
	), "SNV"))

	must(r.RegisterTransformer(NewTransformerFactory("MultiplicativeScatterCorrection",
		"Regress each spectrum on the mean spectrum and remove offset and slope",
		func() noParams { return noParams{} },
		func(noParams) (Transformer, error) { return TransformerFunc(msc), nil },
	), "MSC"))

	must(r.RegisterTransformer(NewTransformerFactory("StandardScaler",
		"Scale each feature to zero mean and unit variance",
		func() standardScalerParams { return standardScalerParams{WithMean: true, WithStd: true} },
		func(p standardScalerParams) (Transformer, error) { return &standardScaler{p}, nil },
	)))

	must(r.RegisterTransformer(NewTransformerFactory("MinMaxScaler",
		"Scale each feature into feature_range",
		func() minMaxParams { return minMaxParams{FeatureRange: []float64{0, 1}} },
		func(p minMaxParams) (Transformer, error) {
			if p.FeatureRange[0] >= p.FeatureRange[1] {
				return nil, invalidParams("feature_range minimum must be smaller than maximum")
			}
			return &minMaxScaler{p}, nil
		},
	)))

	must(r.RegisterTransformer(NewTransformerFactory("RobustScaler",
		"Centre each feature on its median and scale by its interquartile range",
		func() robustParams {
			return robustParams{WithCentering: true, WithScaling: true, QuantileRange: []float64{25, 75}}
		},
		func(p robustParams) (Transformer, error) {
			q := p.QuantileRange
			if q[0] < 0 || q[1] > 100 || q[0] >= q[1] {
				return nil, invalidParams("quantile_range must satisfy 0 <= low < high <= 100")
			}
			return &robustScaler{p}, nil
		},
	)))

	must(r.RegisterTransformer(NewTransformerFactory("Normalize",
		"Scale each spectrum to unit l1, l2 or max norm",
		func() normalizeParams { return normalizeParams{Norm: "l2"} },
		func(p normalizeParams) (Transformer, error) { return &normalizer{p}, nil },
	)))

	must(r.RegisterTransformer(NewTransformerFactory("Derivative",
		"First or second order finite-difference derivative along the feature axis",
		func() derivativeParams { return derivativeParams{Order: 1, Delta: 1} },
		func(p derivativeParams) (Transformer, error) { return &derivative{p}, nil },
	)))

	must(r.RegisterTransformer(NewTransformerFactory("SavitzkyGolay",
		"Savitzky-Golay smoothing or derivative filter",
		func() savgolParams { return savgolParams{WindowLength: 11, PolyOrder: 2} },
		newSavitzkyGolay,
	), "SG"))

	must(r.RegisterTransformer(NewTransformerFactory("Detrend",
		"Subtract the least-squares linear trend of each spectrum",
		func() noParams { return noParams{} },
		func(noParams) (Transformer, error) { return TransformerFunc(detrend), nil },
	)))

	must(r.RegisterTransformer(NewTransformerFactory("CropTransformer",
		"Keep features in [start, end)",
		func() cropParams { return cropParams{} },
		func(p cropParams) (Transformer, error) {
			if p.End != nil && *p.End <= p.Start {
				return nil, invalidParams("end must be greater than start")
			}
			return &crop{p}, nil
		},
	), "Crop"))

	must(r.RegisterTransformer(NewTransformerFactory("LogTransform",
		"Natural logarithm of value plus offset",
		func() logParams { return logParams{} },
		func(p logParams) (Transformer, error) { return &logTransform{p}, nil },
	)))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

type noParams struct{}

// mapRows applies fn to every row of x, writing into a new matrix of the
// same shape.
func mapRows(ctx context.Context, x *mat.Dense, fn func(dst, src []float64) error) (*mat.Dense, error) {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := fn(out.RawRowView(i), x.RawRowView(i)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return out, nil
}

// mapColumns computes per-column (shift, scale) and returns (x-shift)*scale.
func mapColumns(x *mat.Dense, stats func(col []float64) (shift, scale float64)) *mat.Dense {
	r, c := x.Dims()
	shift := make([]float64, c)
	scale := make([]float64, c)
	for j := 0; j < c; j++ {
		shift[j], scale[j] = stats(numeric.Column(x, j))
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - shift[j]) * scale[j]
	}, x)
	return out
}

type snvParams struct {
	WithMean bool `json:"with_mean"`
	WithStd  bool `json:"with_std"`
}

type snv struct{ p snvParams }

func (t *snv) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	return mapRows(ctx, x, func(dst, src []float64) error {
		mean, std := stat.PopMeanStdDev(src, nil)
		copy(dst, src)
		if t.p.WithMean {
			floats.AddConst(-mean, dst)
		}
		if t.p.WithStd && std > 0 {
			floats.Scale(1/std, dst)
		}
		return nil
	})
}

func msc(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	r, c := x.Dims()
	reference := make([]float64, c)
	for i := 0; i < r; i++ {
		floats.Add(reference, x.RawRowView(i))
	}
	floats.Scale(1/float64(r), reference)

	return mapRows(ctx, x, func(dst, src []float64) error {
		alpha, beta := stat.LinearRegression(reference, src, nil, false)
		if beta == 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
			return errors.NumericalError("scatter slope against the mean spectrum is degenerate")
		}
		for j, v := range src {
			dst[j] = (v - alpha) / beta
		}
		return nil
	})
}

type standardScalerParams struct {
	WithMean bool `json:"with_mean"`
	WithStd  bool `json:"with_std"`
}

type standardScaler struct{ p standardScalerParams }

func (t *standardScaler) FitTransform(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	return mapColumns(x, func(col []float64) (float64, float64) {
		mean, std := stat.PopMeanStdDev(col, nil)
		shift, scale := 0.0, 1.0
		if t.p.WithMean {
			shift = mean
		}
		if t.p.WithStd && std > 0 {
			scale = 1 / std
		}
		return shift, scale
	}), nil
}

type minMaxParams struct {
	FeatureRange []float64 `json:"feature_range" validate:"len=2"`
}

type minMaxScaler struct{ p minMaxParams }

func (t *minMaxScaler) FitTransform(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	lo, hi := t.p.FeatureRange[0], t.p.FeatureRange[1]
	r, c := x.Dims()
	mins := make([]float64, c)
	spans := make([]float64, c)
	for j := 0; j < c; j++ {
		col := numeric.Column(x, j)
		mins[j] = floats.Min(col)
		spans[j] = floats.Max(col) - mins[j]
		if spans[j] == 0 {
			spans[j] = 1
		}
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return lo + (v-mins[j])/spans[j]*(hi-lo)
	}, x)
	return out, nil
}

type robustParams struct {
	WithCentering bool      `json:"with_centering"`
	WithScaling   bool      `json:"with_scaling"`
	QuantileRange []float64 `json:"quantile_range" validate:"len=2"`
}

type robustScaler struct{ p robustParams }

func (t *robustScaler) FitTransform(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	return mapColumns(x, func(col []float64) (float64, float64) {
		sorted := numeric.SortedCopy(col)
		shift, scale := 0.0, 1.0
		if t.p.WithCentering {
			shift = numeric.Percentile(sorted, 50)
		}
		if t.p.WithScaling {
			iqr := numeric.Percentile(sorted, t.p.QuantileRange[1]) - numeric.Percentile(sorted, t.p.QuantileRange[0])
			if iqr > 0 {
				scale = 1 / iqr
			}
		}
		return shift, scale
	}), nil
}

type normalizeParams struct {
	Norm string `json:"norm" validate:"oneof=l1 l2 max"`
}

type normalizer struct{ p normalizeParams }

func (t *normalizer) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	L := 2.0
	switch t.p.Norm {
	case "l1":
		L = 1
	case "max":
		L = math.Inf(1)
	}
	return mapRows(ctx, x, func(dst, src []float64) error {
		copy(dst, src)
		if n := floats.Norm(src, L); n > 0 {
			floats.Scale(1/n, dst)
		}
		return nil
	})
}

type derivativeParams struct {
	Order int     `json:"order" validate:"oneof=1 2"`
	Delta float64 `json:"delta" validate:"gt=0"`
}

type derivative struct{ p derivativeParams }

func (t *derivative) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	_, c := x.Dims()
	if c < 2 {
		return nil, errors.ValidationErrorf("derivative needs at least 2 features, got %d", c)
	}
	buf := make([]float64, c)
	return mapRows(ctx, x, func(dst, src []float64) error {
		if t.p.Order == 1 {
			gradient(dst, src, t.p.Delta)
			return nil
		}
		gradient(buf, src, t.p.Delta)
		gradient(dst, buf, t.p.Delta)
		return nil
	})
}

// gradient writes central differences for interior points and one-sided
// differences at both ends. len(src) must be at least 2.
func gradient(dst, src []float64, h float64) {
	n := len(src)
	dst[0] = (src[1] - src[0]) / h
	dst[n-1] = (src[n-1] - src[n-2]) / h
	for i := 1; i < n-1; i++ {
		dst[i] = (src[i+1] - src[i-1]) / (2 * h)
	}
}

func detrend(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	_, c := x.Dims()
	positions := make([]float64, c)
	for j := range positions {
		positions[j] = float64(j)
	}
	return mapRows(ctx, x, func(dst, src []float64) error {
		if c < 2 {
			dst[0] = 0
			return nil
		}
		alpha, beta := stat.LinearRegression(positions, src, nil, false)
		for j, v := range src {
			dst[j] = v - (alpha + beta*positions[j])
		}
		return nil
	})
}

type cropParams struct {
	Start int  `json:"start" validate:"min=0"`
	End   *int `json:"end,omitempty" validate:"omitempty,min=1"`
}

type crop struct{ p cropParams }

func (t *crop) FitTransform(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	r, c := x.Dims()
	end := c
	if t.p.End != nil {
		end = *t.p.End
	}
	if end > c || t.p.Start >= end {
		return nil, errors.ValidationErrorf("crop range [%d, %d) is outside %d features", t.p.Start, end, c)
	}
	return mat.DenseCopyOf(x.Slice(0, r, t.p.Start, end)), nil
}

type logParams struct {
	Offset float64 `json:"offset"`
}

type logTransform struct{ p logParams }

func (t *logTransform) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	return mapRows(ctx, x, func(dst, src []float64) error {
		for j, v := range src {
			shifted := v + t.p.Offset
			if shifted <= 0 {
				return errors.NumericalError(fmt.Sprintf("log of non-positive value %g at feature %d", shifted, j))
			}
			dst[j] = math.Log(shifted)
		}
		return nil
	})
}
