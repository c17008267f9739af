package matrix

import (
	"fmt"
	"math"
	"slices"

	"github.com/agbru/matcalc/internal/parallel"
)

// ZeroTolerance is the magnitude below which a cell counts as zero in
// ColumnIsZero.
const ZeroTolerance = 1e-6

func (m *Matrix) mustColumn(j int) {
	m.check()
	if j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: column %d out of range [0, %d)", j, m.cols))
	}
}

// AddToColumn adds v to every cell of column j.
func (m *Matrix) AddToColumn(j int, v float32) *Matrix {
	m.mustColumn(j)
	for r := 0; r < m.rows; r++ {
		m.data[m.base+r*m.origCols+j] += v
	}
	return m
}

// DivideColumn divides every cell of column j by v.
func (m *Matrix) DivideColumn(j int, v float32) *Matrix {
	m.mustColumn(j)
	for r := 0; r < m.rows; r++ {
		m.data[m.base+r*m.origCols+j] /= v
	}
	return m
}

// ColumnSum returns the sum of column j.
func (m *Matrix) ColumnSum(j int) float32 {
	m.mustColumn(j)
	var s float32
	for r := 0; r < m.rows; r++ {
		s += m.data[m.base+r*m.origCols+j]
	}
	return s
}

// ColumnIsZero reports whether every cell of column j is below
// ZeroTolerance in magnitude.
func (m *Matrix) ColumnIsZero(j int) bool {
	m.mustColumn(j)
	for r := 0; r < m.rows; r++ {
		if math.Abs(float64(m.data[m.base+r*m.origCols+j])) >= ZeroTolerance {
			return false
		}
	}
	return true
}

// NormalizeColumns rescales each column so it sums to 1. Columns summing to
// zero produce Inf/NaN; callers make sure every column has a nonzero sum.
func (m *Matrix) NormalizeColumns() *Matrix {
	m.check()
	parallel.For(m.cols, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			m.DivideColumn(j, m.ColumnSum(j))
		}
	})
	return m
}

// NormInf returns the induced infinity norm: the largest absolute row sum.
func (m *Matrix) NormInf() float32 {
	m.check()
	return parallel.MaxFloat32(m.rows, func(lo, hi int) float32 {
		var best float32
		for r := lo; r < hi; r++ {
			var s float32
			for _, v := range m.Row(r) {
				s += float32(math.Abs(float64(v)))
			}
			if s > best {
				best = s
			}
		}
		return best
	})
}

// Trace returns the sum of the main diagonal.
func (m *Matrix) Trace() float64 {
	m.check()
	var s float64
	for i := range min(m.rows, m.cols) {
		s += float64(m.At(i, i))
	}
	return s
}

// Frobenius returns the Frobenius norm of m, accumulated in float64.
func (m *Matrix) Frobenius() float64 {
	m.check()
	var s float64
	for r := 0; r < m.rows; r++ {
		for _, v := range m.Row(r) {
			s += float64(v) * float64(v)
		}
	}
	return math.Sqrt(s)
}

// Equal reports whether a and b have the same shape and identical cells.
// NaN cells are never equal.
func Equal(a, b *Matrix) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	a.check()
	b.check()
	for r := 0; r < a.rows; r++ {
		if !slices.Equal(a.Row(r), b.Row(r)) {
			return false
		}
	}
	return true
}

// EqualApprox reports whether a and b have the same shape and every pair of
// cells agrees within tol relative to max(1, |x|, |y|).
func EqualApprox(a, b *Matrix, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	return MaxRelDiff(a, b) <= tol
}

// MaxAbsDiff returns the largest cellwise absolute difference between a and
// b. It panics if the shapes differ.
func MaxAbsDiff(a, b *Matrix) float64 {
	mustSameShape("MaxAbsDiff", a, b)
	var worst float64
	for r := 0; r < a.rows; r++ {
		x, y := a.Row(r), b.Row(r)
		for c := range x {
			if d := math.Abs(float64(x[c]) - float64(y[c])); d > worst || math.IsNaN(d) {
				worst = d
			}
		}
	}
	return worst
}

// MaxRelDiff returns the largest cellwise difference between a and b scaled
// by max(1, |x|, |y|). It panics if the shapes differ.
func MaxRelDiff(a, b *Matrix) float64 {
	mustSameShape("MaxRelDiff", a, b)
	var worst float64
	for r := 0; r < a.rows; r++ {
		x, y := a.Row(r), b.Row(r)
		for c := range x {
			fx, fy := float64(x[c]), float64(y[c])
			scale := math.Max(1, math.Max(math.Abs(fx), math.Abs(fy)))
			if d := math.Abs(fx-fy) / scale; d > worst || math.IsNaN(d) {
				worst = d
			}
		}
	}
	return worst
}
