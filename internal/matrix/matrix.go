// Package matrix implements a dense row-major float32 matrix with two
// addressing modes over one contiguous buffer: an owning matrix, which
// allocated its storage, and a view, which is a window into another matrix's
// storage at a row/column offset.
//
// Writes through a view land in the parent's buffer. Views stay valid as long
// as the buffer generation they were created on is current: resizing the
// owner retires that generation and any later checked operation on an old
// view panics.
//
// Arithmetic follows the math/big convention: the receiver is the
// destination, the operands are arguments, and the receiver is returned, so
// m.Add(m, b) is an in-place m += b and matrix.Add(a, b) allocates.
//
// Shape mismatches and ownership misuse are contract violations and panic.
package matrix

import "fmt"

// buffer is the shared backing store of an owning matrix and its views.
// epoch is bumped when the owner stops using the buffer.
type buffer struct {
	data  []float32
	epoch uint64
}

// Matrix is either an owning matrix or a view into another matrix's buffer.
// The zero value is an empty 0x0 owning matrix.
type Matrix struct {
	buf   *buffer
	epoch uint64
	data  []float32

	rows, cols         int
	offRow, offCol     int
	origRows, origCols int
	base               int

	view bool
}

// New returns a zero-filled rows x cols owning matrix.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimensions %dx%d", rows, cols))
	}
	m := &Matrix{}
	m.own(make([]float32, rows*cols), rows, cols)
	return m
}

// FromRows builds an owning matrix from a slice of equally long rows.
func FromRows(rows [][]float32) *Matrix {
	if len(rows) == 0 {
		return New(0, 0)
	}
	m := New(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			panic(fmt.Sprintf("matrix: ragged row %d has %d values, expected %d", i, len(row), m.cols))
		}
		copy(m.Row(i), row)
	}
	return m
}

// View returns a rows x cols window of parent anchored at (offRow, offCol)
// in parent's coordinates. The window must fit inside the underlying buffer.
func View(parent *Matrix, rows, cols, offRow, offCol int) *Matrix {
	parent.check()
	if rows < 0 || cols < 0 || offRow < 0 || offCol < 0 {
		panic(fmt.Sprintf("matrix: invalid view %dx%d at (%d,%d)", rows, cols, offRow, offCol))
	}
	absRow := parent.offRow + offRow
	absCol := parent.offCol + offCol
	if absRow+rows > parent.origRows || absCol+cols > parent.origCols {
		panic(fmt.Sprintf("matrix: view %dx%d at (%d,%d) exceeds buffer %dx%d",
			rows, cols, absRow, absCol, parent.origRows, parent.origCols))
	}
	return &Matrix{
		buf:      parent.buf,
		epoch:    parent.epoch,
		data:     parent.data,
		rows:     rows,
		cols:     cols,
		offRow:   absRow,
		offCol:   absCol,
		origRows: parent.origRows,
		origCols: parent.origCols,
		base:     absRow*parent.origCols + absCol,
		view:     true,
	}
}

// Quadrants splits a square matrix of even size into its four half-size
// views, in the order 11, 12, 21, 22.
func (m *Matrix) Quadrants() (m11, m12, m21, m22 *Matrix) {
	if m.rows != m.cols || m.rows%2 != 0 {
		panic(fmt.Sprintf("matrix: quadrants need an even square matrix, got %dx%d", m.rows, m.cols))
	}
	h := m.rows / 2
	m11, m12, m21, m22 = View(m, h, h, 0, 0), View(m, h, h, 0, h), View(m, h, h, h, 0), View(m, h, h, h, h)
	mustDisjoint("Quadrants", m11, m12, m21, m22)
	return m11, m12, m21, m22
}

// mustDisjoint panics if any two of ms share a buffer cell. Quadrant
// results are written concurrently without locking.
func mustDisjoint(op string, ms ...*Matrix) {
	for i := range ms {
		for j := i + 1; j < len(ms); j++ {
			if Overlaps(ms[i], ms[j]) {
				panic(fmt.Sprintf("matrix: %s windows %d and %d overlap", op, i, j))
			}
		}
	}
}

func (m *Matrix) own(data []float32, rows, cols int) {
	m.buf = &buffer{data: data}
	m.epoch = 0
	m.data = data
	m.rows, m.cols = rows, cols
	m.offRow, m.offCol = 0, 0
	m.origRows, m.origCols = rows, cols
	m.base = 0
	m.view = false
}

// retire marks the current buffer generation as dead for every view built
// on it.
func (m *Matrix) retire() {
	if m.buf != nil {
		m.buf.epoch++
	}
}

// check panics if m is a view whose buffer generation has been retired.
func (m *Matrix) check() {
	if m.buf == nil {
		if m.data != nil || m.rows != 0 || m.cols != 0 {
			panic("matrix: matrix has no buffer")
		}
		m.own(nil, 0, 0)
		return
	}
	if m.epoch != m.buf.epoch {
		panic("matrix: stale view: its parent was resized or reassigned")
	}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// IsView reports whether m references another matrix's buffer.
func (m *Matrix) IsView() bool { return m.view }

// Stride is the distance in elements between vertically adjacent cells.
func (m *Matrix) Stride() int { return m.origCols }

// Offset returns the view anchor inside the buffer; (0, 0) for owning
// matrices.
func (m *Matrix) Offset() (row, col int) { return m.offRow, m.offCol }

// At returns the element at (r, c). Indices are not checked beyond what the
// runtime does for the underlying slice.
func (m *Matrix) At(r, c int) float32 {
	return m.data[m.base+r*m.origCols+c]
}

// Set stores v at (r, c).
func (m *Matrix) Set(r, c int, v float32) {
	m.data[m.base+r*m.origCols+c] = v
}

// Ptr returns the address of the element at (r, c). Like At it is unchecked.
func (m *Matrix) Ptr(r, c int) *float32 {
	return &m.data[m.base+r*m.origCols+c]
}

// Row returns row r as a slice aliasing the buffer.
func (m *Matrix) Row(r int) []float32 {
	start := m.base + r*m.origCols
	return m.data[start : start+m.cols : start+m.cols]
}

// Raw returns the buffer starting at the first cell of m together with the
// stride, the descriptor form expected by BLAS-style kernels.
func (m *Matrix) Raw() (data []float32, stride int) {
	m.check()
	if m.rows == 0 || m.cols == 0 {
		return nil, m.origCols
	}
	end := m.base + (m.rows-1)*m.origCols + m.cols
	return m.data[m.base:end], m.origCols
}

// Clone returns a tightly packed owning copy of m.
func (m *Matrix) Clone() *Matrix {
	m.check()
	c := New(m.rows, m.cols)
	if !m.view {
		copy(c.data, m.data)
		return c
	}
	for r := 0; r < m.rows; r++ {
		copy(c.Row(r), m.Row(r))
	}
	return c
}

// Move transfers m's contents to a new matrix. Moving an owning matrix hands
// over its buffer and leaves m empty. Moving a view copies its window, so
// the result never aliases another matrix.
func (m *Matrix) Move() *Matrix {
	m.check()
	if m.view {
		return m.Clone()
	}
	moved := *m
	*m = Matrix{}
	m.own(nil, 0, 0)
	return &moved
}

// CopyFrom assigns src's values to m. A view keeps its window and requires
// src to have the same shape. An owning matrix takes src's shape,
// reallocating when it differs.
func (m *Matrix) CopyFrom(src *Matrix) *Matrix {
	m.check()
	src.check()
	if m == src {
		return m
	}
	if src.buf == m.buf {
		src = src.Clone()
	}
	if m.view {
		mustSameShape("CopyFrom", m, src)
	} else if m.rows != src.rows || m.cols != src.cols {
		m.retire()
		m.own(make([]float32, src.rows*src.cols), src.rows, src.cols)
	}
	for r := 0; r < m.rows; r++ {
		copy(m.Row(r), src.Row(r))
	}
	return m
}

// Resize changes the extent of an owning matrix. Cells in the overlap keep
// their values, new cells are zero, and cells outside the new extent are
// dropped. Views created before the call become stale.
func (m *Matrix) Resize(rows, cols int) *Matrix {
	m.check()
	if m.view {
		panic("matrix: Resize called on a view")
	}
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimensions %dx%d", rows, cols))
	}
	if rows == m.rows && cols == m.cols {
		return m
	}
	data := make([]float32, rows*cols)
	keepRows, keepCols := min(rows, m.rows), min(cols, m.cols)
	for r := 0; r < keepRows; r++ {
		copy(data[r*cols:r*cols+keepCols], m.Row(r)[:keepCols])
	}
	m.retire()
	m.own(data, rows, cols)
	return m
}

// Padded returns a new owning rows x cols matrix holding m in its top-left
// corner and zeros elsewhere. m is left untouched.
func (m *Matrix) Padded(rows, cols int) *Matrix {
	m.check()
	if rows < m.rows || cols < m.cols {
		panic(fmt.Sprintf("matrix: cannot pad %dx%d to %dx%d", m.rows, m.cols, rows, cols))
	}
	p := New(rows, cols)
	for r := 0; r < m.rows; r++ {
		copy(p.Row(r), m.Row(r))
	}
	return p
}

// Overlaps reports whether a and b share at least one buffer cell.
func Overlaps(a, b *Matrix) bool {
	if a.buf == nil || a.buf != b.buf || a.rows == 0 || a.cols == 0 || b.rows == 0 || b.cols == 0 {
		return false
	}
	return a.offRow < b.offRow+b.rows && b.offRow < a.offRow+a.rows &&
		a.offCol < b.offCol+b.cols && b.offCol < a.offCol+a.cols
}

func mustSameShape(op string, ms ...*Matrix) {
	for _, x := range ms[1:] {
		if x.rows != ms[0].rows || x.cols != ms[0].cols {
			panic(fmt.Sprintf("matrix: %s shape mismatch %dx%d vs %dx%d", op, ms[0].rows, ms[0].cols, x.rows, x.cols))
		}
	}
	for _, x := range ms {
		x.check()
	}
}
