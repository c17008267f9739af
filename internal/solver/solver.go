// Package solver implements iterative algorithms on top of the matrix core:
// matrix powers by repeated squaring, PageRank, SimRank and the Jacobi
// method for linear systems.
//
// Every solver multiplies through a multiplier.Multiplier (BLAS by
// default), checks its context between iterations, and reports a
// non-converging run as an error instead of looping forever.
package solver

import (
	"errors"
	"fmt"

	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
)

const (
	// DefaultEpsilon is the convergence threshold on the infinity norm of
	// the difference between two successive iterates.
	DefaultEpsilon = 1e-5
	// DefaultMaxIterations caps every iterative solver.
	DefaultMaxIterations = 10_000
	// DefaultDamping is the PageRank damping factor.
	DefaultDamping = 0.85
	// DefaultSimRankDecay is the SimRank decay factor C.
	DefaultSimRankDecay = 0.8
)

var (
	// ErrDidNotConverge is returned when MaxIterations is reached.
	ErrDidNotConverge = fmt.Errorf("%w: iteration cap reached", apperrors.ErrNotConverged)
	// ErrNotConvergent is returned when the Jacobi iteration matrix has
	// infinity norm >= 1, so convergence is not guaranteed.
	ErrNotConvergent = fmt.Errorf("%w: iteration matrix norm is not below 1", apperrors.ErrNotConverged)
	// ErrInvalidInput is returned for malformed operands.
	ErrInvalidInput = errors.New("invalid solver input")
)

// Options configures the iterative solvers. Zero fields take defaults.
type Options struct {
	Epsilon       float64
	MaxIterations int
	Mul           multiplier.Multiplier
}

func (o Options) normalized() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Mul == nil {
		o.Mul = defaultMultiplier
	}
	return o
}

var defaultMultiplier = multiplier.Instrument(multiplier.BLASKernel{})

// Result is the outcome of an iterative solve.
type Result struct {
	// Solution is the final iterate: an n x 1 vector or an n x n matrix.
	Solution *matrix.Matrix
	// Iterations is the number of update steps performed.
	Iterations int
	// Delta is the infinity norm of the last update.
	Delta float64
}

// Vector copies an n x 1 solution into a float64 slice.
func (r *Result) Vector() []float64 {
	out := make([]float64, r.Solution.Rows())
	for i := range out {
		out[i] = float64(r.Solution.At(i, 0))
	}
	return out
}
