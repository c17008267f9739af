package solver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/agbru/matcalc/internal/matrix"
)

// PreparePageRank turns an adjacency matrix (graph[i][j] = 1 for a link
// j -> i) into a column-stochastic transition matrix. Self-loops are
// dropped, pages without outgoing links are linked to every other page, and
// each column is normalized to sum to 1. graph is not modified.
func PreparePageRank(graph *matrix.Matrix) (*matrix.Matrix, error) {
	n := graph.Rows()
	if n != graph.Cols() || n < 2 {
		return nil, fmt.Errorf("%w: PageRank needs a square graph with at least 2 nodes, got %dx%d",
			ErrInvalidInput, graph.Rows(), graph.Cols())
	}
	g := graph.Clone()
	g.SetDiagonal(0)
	for j := 0; j < n; j++ {
		if g.ColumnIsZero(j) {
			g.AddToColumn(j, 1)
		}
	}
	g.SetDiagonal(0)
	return g.NormalizeColumns(), nil
}

// PageRank runs the undamped power iteration x <- G x from the uniform
// vector until successive iterates differ by at most Epsilon.
func PageRank(ctx context.Context, g *matrix.Matrix, opts Options) (*Result, error) {
	return iteratePageRank(ctx, g, 1, opts)
}

// DampedPageRank runs x <- d G x + (1-d)/n from the uniform vector.
func DampedPageRank(ctx context.Context, g *matrix.Matrix, damping float64, opts Options) (*Result, error) {
	if damping <= 0 || damping > 1 {
		return nil, fmt.Errorf("%w: damping %v outside (0, 1]", ErrInvalidInput, damping)
	}
	return iteratePageRank(ctx, g, damping, opts)
}

func iteratePageRank(ctx context.Context, g *matrix.Matrix, damping float64, opts Options) (*Result, error) {
	n := g.Rows()
	if n == 0 || n != g.Cols() {
		return nil, fmt.Errorf("%w: transition matrix is %dx%d", ErrInvalidInput, g.Rows(), g.Cols())
	}
	opts = opts.normalized()
	ctx, span := otel.Tracer("solver").Start(ctx, "PageRank")
	defer span.End()
	span.SetAttributes(attribute.Int("n", n), attribute.Float64("damping", damping))

	teleport := float32((1 - damping) / float64(n))
	x := matrix.New(n, 1)
	x.AddScalar(x, 1/float32(n))

	for it := 1; it <= opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := opts.Mul.Multiply(ctx, g, x)
		if err != nil {
			return nil, err
		}
		if damping != 1 {
			next.Scale(next, float32(damping)).AddScalar(next, teleport)
		}
		delta := float64(matrix.Sub(next, x).NormInf())
		x = next
		if delta <= opts.Epsilon {
			log.Debug().Int("n", n).Int("iterations", it).Float64("damping", damping).Msg("pagerank converged")
			return &Result{Solution: x, Iterations: it, Delta: delta}, nil
		}
	}
	return nil, fmt.Errorf("%w: PageRank after %d iterations", ErrDidNotConverge, opts.MaxIterations)
}

// ExactPageRank solves the damped PageRank fixed point directly:
// (d G - I) x = -(1-d)/n, using an LU factorization in float64.
func ExactPageRank(g *matrix.Matrix, damping float64) (*matrix.Matrix, error) {
	n := g.Rows()
	if n == 0 || n != g.Cols() {
		return nil, fmt.Errorf("%w: transition matrix is %dx%d", ErrInvalidInput, g.Rows(), g.Cols())
	}
	if damping <= 0 || damping >= 1 {
		return nil, fmt.Errorf("%w: exact PageRank needs damping in (0, 1), got %v", ErrInvalidInput, damping)
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, damping*float64(g.At(i, j)))
		}
		a.Set(i, i, a.At(i, i)-1)
	}
	rhs := make([]float64, n)
	floats.AddConst(-(1-damping)/float64(n), rhs)

	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(n, rhs)); err != nil {
		return nil, fmt.Errorf("exact PageRank solve: %w", err)
	}
	out := matrix.New(n, 1)
	for i := 0; i < n; i++ {
		out.Set(i, 0, float32(x.AtVec(i)))
	}
	return out, nil
}

// Ranking returns node indices ordered by decreasing score.
func Ranking(scores []float64) []int {
	sorted := append([]float64(nil), scores...)
	idx := make([]int, len(sorted))
	floats.Argsort(sorted, idx)
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}
