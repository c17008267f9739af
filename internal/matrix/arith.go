package matrix

import "github.com/agbru/matcalc/internal/parallel"

// Add sets m to a + b and returns m. All three must have the same shape;
// m may alias a or b.
func (m *Matrix) Add(a, b *Matrix) *Matrix {
	mustSameShape("Add", m, a, b)
	parallel.For(m.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dst, x, y := m.Row(r), a.Row(r), b.Row(r)
			for c := range dst {
				dst[c] = x[c] + y[c]
			}
		}
	})
	return m
}

// Sub sets m to a - b and returns m.
func (m *Matrix) Sub(a, b *Matrix) *Matrix {
	mustSameShape("Sub", m, a, b)
	parallel.For(m.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dst, x, y := m.Row(r), a.Row(r), b.Row(r)
			for c := range dst {
				dst[c] = x[c] - y[c]
			}
		}
	})
	return m
}

// Scale sets m to a * f and returns m.
func (m *Matrix) Scale(a *Matrix, f float32) *Matrix {
	mustSameShape("Scale", m, a)
	parallel.For(m.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dst, x := m.Row(r), a.Row(r)
			for c := range dst {
				dst[c] = x[c] * f
			}
		}
	})
	return m
}

// AddScalar sets m to a + v elementwise and returns m.
func (m *Matrix) AddScalar(a *Matrix, v float32) *Matrix {
	mustSameShape("AddScalar", m, a)
	parallel.For(m.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dst, x := m.Row(r), a.Row(r)
			for c := range dst {
				dst[c] = x[c] + v
			}
		}
	})
	return m
}

// Add returns a new owning matrix holding a + b.
func Add(a, b *Matrix) *Matrix {
	return New(a.rows, a.cols).Add(a, b)
}

// Sub returns a new owning matrix holding a - b.
func Sub(a, b *Matrix) *Matrix {
	return New(a.rows, a.cols).Sub(a, b)
}

// Scale returns a new owning matrix holding a * f.
func Scale(a *Matrix, f float32) *Matrix {
	return New(a.rows, a.cols).Scale(a, f)
}

// AddScalar returns a new owning matrix holding a + v.
func AddScalar(a *Matrix, v float32) *Matrix {
	return New(a.rows, a.cols).AddScalar(a, v)
}

// T returns the transpose of m as a new owning matrix.
func (m *Matrix) T() *Matrix {
	m.check()
	t := New(m.cols, m.rows)
	parallel.For(t.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			dst := t.Row(r)
			for c := range dst {
				dst[c] = m.At(c, r)
			}
		}
	})
	return t
}
