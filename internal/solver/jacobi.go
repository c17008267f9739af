package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/floats"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/parallel"
)

// LinearSystem is A x = b with a known exact solution X.
type LinearSystem struct {
	A *matrix.Matrix
	B *matrix.Matrix
	X *matrix.Matrix
}

// NewLinearSystem draws a random n x n system. With diagonallyDominant set,
// each diagonal entry is replaced by twice its row sum, which makes the
// Jacobi iteration matrix norm at most 1/2.
func NewLinearSystem(n int, seed uint64, diagonallyDominant bool) *LinearSystem {
	a := matrix.New(n, n).Randomize(seed)
	if diagonallyDominant {
		parallel.For(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				row := a.Row(i)
				a.Set(i, i, 2*float32(floats.Sum(toFloat64(row))))
			}
		})
	}
	x := matrix.New(n, 1).Randomize(seed + 1)
	return &LinearSystem{A: a, B: multiplier.Delegated(a, x), X: x}
}

// SolutionError is the infinity-norm distance between x and the known
// solution.
func (s *LinearSystem) SolutionError(x *matrix.Matrix) float64 {
	return floats.Distance(toFloat64(column(x)), toFloat64(column(s.X)), math.Inf(1))
}

// Jacobi solves a x = b by simple iteration x <- B x + g with
// B = I - D^-1 a and g = D^-1 b, where D is the diagonal of a. It stops
// once ||x - x_prev|| <= (1-q)/q * eps with q = ||B||, which bounds the
// distance to the true solution by eps. It returns ErrNotConvergent when
// q >= 1.
func Jacobi(ctx context.Context, a, b *matrix.Matrix, opts Options) (*Result, error) {
	n := a.Rows()
	if n == 0 || a.Cols() != n || b.Rows() != n || b.Cols() != 1 {
		return nil, fmt.Errorf("%w: Jacobi needs square A and n x 1 b, got %dx%d and %dx%d",
			ErrInvalidInput, a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	for i := 0; i < n; i++ {
		if a.At(i, i) == 0 {
			return nil, fmt.Errorf("%w: zero diagonal entry at %d", ErrInvalidInput, i)
		}
	}
	opts = opts.normalized()

	ctx, span := otel.Tracer("solver").Start(ctx, "Jacobi")
	defer span.End()
	span.SetAttributes(attribute.Int("n", n))

	iter := matrix.New(n, n)
	g := matrix.New(n, 1)
	parallel.For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			inv := 1 / a.At(i, i)
			src, dst := a.Row(i), iter.Row(i)
			for j := range dst {
				dst[j] = -inv * src[j]
			}
			dst[i] = 0
			g.Set(i, 0, inv*b.At(i, 0))
		}
	})

	q := float64(iter.NormInf())
	if q >= 1 {
		return nil, fmt.Errorf("%w: ||B|| = %.4f", ErrNotConvergent, q)
	}
	stop := opts.Epsilon
	if q > 0 {
		stop = (1 - q) / q * opts.Epsilon
	}

	x := matrix.New(n, 1)
	for it := 1; it <= opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := opts.Mul.Multiply(ctx, iter, x)
		if err != nil {
			return nil, err
		}
		next.Add(next, g)
		delta := float64(matrix.Sub(next, x).NormInf())
		x = next
		if delta <= stop {
			log.Debug().Int("n", n).Int("iterations", it).Float64("q", q).Msg("jacobi converged")
			return &Result{Solution: x, Iterations: it, Delta: delta}, nil
		}
	}
	return nil, fmt.Errorf("%w: Jacobi after %d iterations", ErrDidNotConverge, opts.MaxIterations)
}

func column(m *matrix.Matrix) []float32 {
	out := make([]float32, m.Rows())
	for i := range out {
		out[i] = m.At(i, 0)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
