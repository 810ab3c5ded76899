package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FromRows builds a dense matrix from row slices. Rows must be non-empty
// and of equal length.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix has no rows")
	}
	c := len(rows[0])
	if c == 0 {
		return nil, fmt.Errorf("matrix has no columns")
	}
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// ToRows copies a matrix into row slices.
func ToRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}

// ToRowsColumns copies the given columns of every row of m.
func ToRowsColumns(m mat.Matrix, cols []int) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, len(cols))
		for k, j := range cols {
			row[k] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}

// SelectRows returns a new matrix holding rows idx of m, in order.
func SelectRows(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, src := range idx {
		out.SetRow(i, m.RawRowView(src))
	}
	return out
}

// Column returns a copy of column j.
func Column(m mat.Matrix, j int) []float64 {
	r, _ := m.Dims()
	col := make([]float64, r)
	for i := range col {
		col[i] = m.At(i, j)
	}
	return col
}

// AllFinite reports whether every element of m is neither NaN nor ±Inf.
func AllFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// FiniteSlice reports whether every element of xs is finite.
func FiniteSlice(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// EvenIndices returns up to max indices spread evenly over [0, n), always
// including 0 and n-1. max <= 0 or max >= n returns every index.
func EvenIndices(n, max int) []int {
	if max <= 0 || max >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if max == 1 {
		return []int{0}
	}
	out := make([]int, 0, max)
	last := -1
	for k := 0; k < max; k++ {
		j := int(math.Round(float64(k) * float64(n-1) / float64(max-1)))
		if j != last {
			out = append(out, j)
			last = j
		}
	}
	return out
}
