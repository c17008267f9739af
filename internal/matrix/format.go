package matrix

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes m to w one row per line with space-separated cells.
func (m *Matrix) Fprint(w io.Writer) error {
	m.check()
	var sb strings.Builder
	for r := 0; r < m.rows; r++ {
		sb.Reset()
		for c, v := range m.Row(r) {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(float64(v), 'g', 6, 32))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (m *Matrix) String() string {
	var sb strings.Builder
	kind := "owning"
	if m.view {
		kind = fmt.Sprintf("view@(%d,%d)", m.offRow, m.offCol)
	}
	fmt.Fprintf(&sb, "Matrix %dx%d %s\n", m.rows, m.cols, kind)
	_ = m.Fprint(&sb)
	return sb.String()
}

// ToRows copies m into a fresh slice of rows.
func (m *Matrix) ToRows() [][]float32 {
	m.check()
	out := make([][]float32, m.rows)
	for r := range out {
		out[r] = append([]float32(nil), m.Row(r)...)
	}
	return out
}
