package operators

import (
	"context"
	"fmt"

	"spectral-workbench/internal/common/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type savgolParams struct {
	WindowLength int `json:"window_length" validate:"min=3,odd"`
	PolyOrder    int `json:"polyorder" validate:"min=0,ltfield=WindowLength"`
	Deriv        int `json:"deriv" validate:"min=0"`
}

// savitzkyGolay fits a polynomial of degree polyorder to every window of
// window_length features by least squares and evaluates it, or its deriv-th
// derivative, at the window centre. The first and last half-windows are
// evaluated on the polynomial fitted to the first and last full window.
type savitzkyGolay struct {
	p savgolParams
	// projector maps a window of samples to polynomial coefficients in the
	// scaled coordinate t = (j-h)/h.
	projector *mat.Dense
	// kernel evaluates the deriv-th derivative at the window centre.
	kernel []float64
}

func newSavitzkyGolay(p savgolParams) (Transformer, error) {
	if p.Deriv > p.PolyOrder {
		return nil, invalidParams("deriv must not exceed polyorder")
	}

	w, m := p.WindowLength, p.PolyOrder+1
	h := float64(w / 2)

	vander := mat.NewDense(w, m, nil)
	for j := 0; j < w; j++ {
		t := (float64(j) - h) / h
		v := 1.0
		for k := 0; k < m; k++ {
			vander.Set(j, k, v)
			v *= t
		}
	}

	var gram mat.Dense
	gram.Mul(vander.T(), vander)
	var projector mat.Dense
	if err := projector.Solve(&gram, vander.T()); err != nil {
		return nil, invalidParams("savitzky-golay system is singular: %v", err)
	}

	kernel := make([]float64, w)
	copy(kernel, projector.RawRowView(p.Deriv))
	floats.Scale(fallingFactorial(p.Deriv, p.Deriv)/powInt(h, p.Deriv), kernel)

	return &savitzkyGolay{p: p, projector: &projector, kernel: kernel}, nil
}

func (s *savitzkyGolay) FitTransform(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	_, c := x.Dims()
	w := s.p.WindowLength
	if w > c {
		return nil, errors.ValidationError(fmt.Sprintf("window_length %d exceeds feature count %d", w, c))
	}
	half := w / 2
	coeffs := make([]float64, s.p.PolyOrder+1)

	return mapRows(ctx, x, func(dst, src []float64) error {
		for i := half; i < c-half; i++ {
			dst[i] = floats.Dot(s.kernel, src[i-half:i+half+1])
		}
		s.fitEdge(coeffs, src[:w])
		for i := 0; i < half; i++ {
			dst[i] = s.evaluate(coeffs, i)
		}
		s.fitEdge(coeffs, src[c-w:])
		for i := c - half; i < c; i++ {
			dst[i] = s.evaluate(coeffs, i-(c-w))
		}
		return nil
	})
}

func (s *savitzkyGolay) fitEdge(dst, window []float64) {
	for k := range dst {
		dst[k] = floats.Dot(s.projector.RawRowView(k), window)
	}
}

// evaluate returns the deriv-th derivative, in feature units, of the
// polynomial coeffs at window position j.
func (s *savitzkyGolay) evaluate(coeffs []float64, j int) float64 {
	d := s.p.Deriv
	h := float64(s.p.WindowLength / 2)
	t := (float64(j) - h) / h
	sum := 0.0
	for k := d; k < len(coeffs); k++ {
		sum += coeffs[k] * fallingFactorial(k, d) * powInt(t, k-d)
	}
	return sum / powInt(h, d)
}

// fallingFactorial returns k*(k-1)*...*(k-d+1).
func fallingFactorial(k, d int) float64 {
	out := 1.0
	for i := 0; i < d; i++ {
		out *= float64(k - i)
	}
	return out
}

func powInt(x float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= x
	}
	return out
}
