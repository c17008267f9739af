package multiplier

import (
	"fmt"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/parallel"
)

// mustConform panics unless result = lhs x rhs is well shaped and result
// shares no cells with either operand.
func mustConform(lhs, rhs, result *matrix.Matrix) {
	if lhs.Cols() != rhs.Rows() || result.Rows() != lhs.Rows() || result.Cols() != rhs.Cols() {
		panic(fmt.Sprintf("multiplier: cannot store %dx%d * %dx%d into %dx%d",
			lhs.Rows(), lhs.Cols(), rhs.Rows(), rhs.Cols(), result.Rows(), result.Cols()))
	}
	if matrix.Overlaps(result, lhs) || matrix.Overlaps(result, rhs) {
		panic("multiplier: result aliases an operand")
	}
}

// Definition computes result = lhs x rhs straight from the definition of
// the product. Rows of the result are computed in parallel; within a row the
// inner index runs in ascending order, so the summation order per cell is
// fixed. It is the reference the faster kernels are checked against.
func Definition(lhs, rhs, result *matrix.Matrix) {
	mustConform(lhs, rhs, result)
	inner := lhs.Cols()
	parallel.For(result.Rows(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst := result.Row(i)
			clear(dst)
			a := lhs.Row(i)
			for k := 0; k < inner; k++ {
				aik := a[k]
				b := rhs.Row(k)
				for j := range dst {
					dst[j] += aik * b[j]
				}
			}
		}
	})
}

// DefinitionProduct returns lhs x rhs computed by Definition.
func DefinitionProduct(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	result := matrix.New(lhs.Rows(), rhs.Cols())
	Definition(lhs, rhs, result)
	return result
}
