package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/ui"
)

// MatrixPrintLimit is the largest dimension DisplayMatrix prints in full.
const MatrixPrintLimit = 16

// DisplayMatrix prints m under a bold title. Matrices larger than
// MatrixPrintLimit are shown through a view of their top-left corner.
func DisplayMatrix(out io.Writer, title string, m *matrix.Matrix) error {
	fmt.Fprintf(out, "%s%s%s\n", ui.ColorBold(), title, ui.ColorReset())
	rows, cols := m.Dims()
	if rows <= MatrixPrintLimit && cols <= MatrixPrintLimit {
		return m.Fprint(out)
	}
	r, c := min(rows, MatrixPrintLimit), min(cols, MatrixPrintLimit)
	fmt.Fprintf(out, "(%dx%d, top-left %dx%d shown)\n", rows, cols, r, c)
	return matrix.View(m, r, c, 0, 0).Fprint(out)
}

// DisplayRanking prints the top entries of a score vector, best first.
// order is the node order returned by solver.Ranking.
func DisplayRanking(out io.Writer, title string, scores []float64, order []int, top int) error {
	fmt.Fprintf(out, "%s%s%s\n", ui.ColorBold(), title, ui.ColorReset())
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Rank\tNode\tScore")
	for i, node := range order {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(tw, "%d\t%s%d%s\t%.6f\n", i+1, ui.ColorBlue(), node, ui.ColorReset(), scores[node])
	}
	return tw.Flush()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
