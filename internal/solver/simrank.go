package solver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agbru/matcalc/internal/matrix"
)

// SimRank computes pairwise node similarity for an adjacency matrix by
// iterating S <- c W^T S W with the diagonal pinned to 1, where W is the
// column-normalized graph. A decay of zero selects DefaultSimRankDecay.
// Iteration stops once the infinity norm of the update is strictly below
// Epsilon.
func SimRank(ctx context.Context, graph *matrix.Matrix, decay float64, opts Options) (*Result, error) {
	if decay == 0 {
		decay = DefaultSimRankDecay
	}
	if decay < 0 || decay >= 1 {
		return nil, fmt.Errorf("%w: SimRank decay %v outside (0, 1)", ErrInvalidInput, decay)
	}
	w, err := PreparePageRank(graph)
	if err != nil {
		return nil, err
	}
	opts = opts.normalized()
	n := w.Rows()

	ctx, span := otel.Tracer("solver").Start(ctx, "SimRank")
	defer span.End()
	span.SetAttributes(attribute.Int("n", n), attribute.Float64("decay", decay))

	wt := w.T()
	s := matrix.Identity(n)
	for it := 1; it <= opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		left, err := opts.Mul.Multiply(ctx, wt, s)
		if err != nil {
			return nil, err
		}
		next, err := opts.Mul.Multiply(ctx, left, w)
		if err != nil {
			return nil, err
		}
		next.Scale(next, float32(decay)).SetDiagonal(1)
		delta := float64(matrix.Sub(next, s).NormInf())
		s = next
		if delta < opts.Epsilon {
			log.Debug().Int("n", n).Int("iterations", it).Msg("simrank converged")
			return &Result{Solution: s, Iterations: it, Delta: delta}, nil
		}
	}
	return nil, fmt.Errorf("%w: SimRank after %d iterations", ErrDidNotConverge, opts.MaxIterations)
}
