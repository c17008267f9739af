package multiplier

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/agbru/matcalc/internal/matrix"
)

// general describes m to BLAS. The stride is the width of the underlying
// buffer, so a view is passed without copying.
func general(m *matrix.Matrix) blas32.General {
	data, stride := m.Raw()
	return blas32.General{Rows: m.Rows(), Cols: m.Cols(), Data: data, Stride: stride}
}

// DelegatedInto computes result = lhs x rhs with the single-precision GEMM
// of the registered BLAS implementation (gonum's native one unless another
// was installed with blas32.Use).
func DelegatedInto(lhs, rhs, result *matrix.Matrix) {
	mustConform(lhs, rhs, result)
	if result.Rows() == 0 || result.Cols() == 0 {
		return
	}
	if lhs.Cols() == 0 {
		result.Zero()
		return
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(lhs), general(rhs), 0, general(result))
}

// Delegated returns lhs x rhs computed by the BLAS kernel.
func Delegated(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	result := matrix.New(lhs.Rows(), rhs.Cols())
	DelegatedInto(lhs, rhs, result)
	return result
}
