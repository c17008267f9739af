package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/agbru/matcalc/internal/cli"
	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/solver"
	"github.com/agbru/matcalc/internal/ui"
	"github.com/agbru/matcalc/pkg/models"
)

// RankingTop is the number of nodes listed in the text PageRank report.
const RankingTop = 10

func solverOptions(cfg config.AppConfig, mul multiplier.Multiplier) solver.Options {
	return solver.Options{Epsilon: cfg.Epsilon, MaxIterations: cfg.MaxIterations, Mul: mul}
}

// randomGraph draws the adjacency matrix used by the graph modes.
func randomGraph(cfg config.AppConfig) *matrix.Matrix {
	return matrix.New(cfg.Size, cfg.Size).RandomGraph(cfg.Seed, cfg.EdgeProbability)
}

// failSolver reports a solver error and returns its exit code. In JSON mode
// the error is written as an ErrorResponse document.
func failSolver(err error, elapsed time.Duration, cfg config.AppConfig, out io.Writer) int {
	if cfg.JSONOutput {
		_ = cli.WriteJSON(out, models.ErrorResponse{Error: cfg.Mode + " failed", Message: err.Error()})
		return apperrors.HandleComputationError(err, elapsed, io.Discard, nil)
	}
	return apperrors.HandleComputationError(err, elapsed, out, ui.ColorProvider{})
}

func finish(out io.Writer, cfg config.AppConfig, report models.SolverReport) int {
	if cfg.JSONOutput {
		if err := cli.WriteJSON(out, report); err != nil {
			return apperrors.ExitErrorGeneric
		}
	}
	return apperrors.ExitSuccess
}

func maybeDisplay(out io.Writer, cfg config.AppConfig, title string, m *matrix.Matrix) {
	if cfg.Verbose && !cfg.JSONOutput {
		if err := cli.DisplayMatrix(out, title, m); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
	}
}

// RunPower raises a random adjacency matrix to cfg.Power. Entry (i, j) of
// the result counts the walks of that length from i to j.
func RunPower(ctx context.Context, mul multiplier.Multiplier, cfg config.AppConfig, out io.Writer) int {
	graph := randomGraph(cfg)
	maybeDisplay(out, cfg, "Adjacency matrix", graph)

	start := time.Now()
	walks, err := solver.Power(ctx, graph, cfg.Power, mul)
	elapsed := time.Since(start)
	if err != nil {
		return failSolver(err, elapsed, cfg, out)
	}

	report := models.SolverReport{
		Mode: cfg.Mode, N: cfg.Size, Algorithm: mul.Name(),
		Duration:  cli.FormatHumanDuration(elapsed),
		Trace:     walks.Trace(),
		Frobenius: walks.Frobenius(),
	}
	if !cfg.JSONOutput {
		if err := cli.DisplayMatrix(out, fmt.Sprintf("Walks of length %d", cfg.Power), walks); err != nil {
			return apperrors.ExitErrorGeneric
		}
		fmt.Fprintf(out, "Closed walks (trace): %s%g%s, computed in %s\n",
			ui.ColorGreen(), report.Trace, ui.ColorReset(), report.Duration)
	}
	return finish(out, cfg, report)
}

// RunPageRank ranks the nodes of a random graph. It runs the plain
// iteration and the damped one, and checks the damped scores against the
// exact solution. A plain iteration that does not converge (periodic
// graphs) is reported as a warning only.
func RunPageRank(ctx context.Context, mul multiplier.Multiplier, cfg config.AppConfig, out io.Writer) int {
	graph := randomGraph(cfg)
	maybeDisplay(out, cfg, "Adjacency matrix", graph)

	start := time.Now()
	g, err := solver.PreparePageRank(graph)
	if err != nil {
		return failSolver(err, time.Since(start), cfg, out)
	}
	maybeDisplay(out, cfg, "Transition matrix", g)
	opts := solverOptions(cfg, mul)

	plain, err := solver.PageRank(ctx, g, opts)
	switch {
	case errors.Is(err, solver.ErrDidNotConverge):
		if !cfg.JSONOutput {
			fmt.Fprintf(out, "%sWarning:%s plain PageRank did not converge in %d iterations.\n",
				ui.ColorYellow(), ui.ColorReset(), cfg.MaxIterations)
		}
	case err != nil:
		return failSolver(err, time.Since(start), cfg, out)
	case !cfg.JSONOutput:
		fmt.Fprintf(out, "Plain PageRank converged in %d iterations.\n", plain.Iterations)
	}

	damped, err := solver.DampedPageRank(ctx, g, cfg.Damping, opts)
	elapsed := time.Since(start)
	if err != nil {
		return failSolver(err, elapsed, cfg, out)
	}
	scores := damped.Vector()
	order := solver.Ranking(scores)

	report := models.SolverReport{
		Mode: cfg.Mode, N: cfg.Size, Algorithm: mul.Name(),
		Iterations: damped.Iterations,
		Delta:      damped.Delta,
		Duration:   cli.FormatHumanDuration(elapsed),
	}
	for i, node := range order {
		report.Ranking = append(report.Ranking, models.RankEntry{Rank: i + 1, Node: node, Score: scores[node]})
	}
	if cfg.Damping < 1 {
		exact, err := solver.ExactPageRank(g, cfg.Damping)
		if err != nil {
			return failSolver(err, elapsed, cfg, out)
		}
		for i, s := range scores {
			report.ExactDiff = math.Max(report.ExactDiff, math.Abs(s-float64(exact.At(i, 0))))
		}
	}

	if !cfg.JSONOutput {
		fmt.Fprintf(out, "Damped PageRank (d=%g) converged in %d iterations, %s.\n",
			cfg.Damping, damped.Iterations, report.Duration)
		if cfg.Damping < 1 {
			fmt.Fprintf(out, "Largest gap to the exact solution: %.2e\n", report.ExactDiff)
		}
		if err := cli.DisplayRanking(out, "Ranking", scores, order, RankingTop); err != nil {
			return apperrors.ExitErrorGeneric
		}
	}
	return finish(out, cfg, report)
}

// RunSimRank computes the SimRank similarity of a random graph's nodes.
func RunSimRank(ctx context.Context, mul multiplier.Multiplier, cfg config.AppConfig, out io.Writer) int {
	graph := randomGraph(cfg)
	maybeDisplay(out, cfg, "Adjacency matrix", graph)

	start := time.Now()
	res, err := solver.SimRank(ctx, graph, solver.DefaultSimRankDecay, solverOptions(cfg, mul))
	elapsed := time.Since(start)
	if err != nil {
		return failSolver(err, elapsed, cfg, out)
	}

	report := models.SolverReport{
		Mode: cfg.Mode, N: cfg.Size, Algorithm: mul.Name(),
		Iterations: res.Iterations,
		Delta:      res.Delta,
		Duration:   cli.FormatHumanDuration(elapsed),
		Frobenius:  res.Solution.Frobenius(),
	}
	if !cfg.JSONOutput {
		if err := cli.DisplayMatrix(out, "SimRank similarity", res.Solution); err != nil {
			return apperrors.ExitErrorGeneric
		}
		fmt.Fprintf(out, "Converged in %d iterations, %s.\n", res.Iterations, report.Duration)
	}
	return finish(out, cfg, report)
}

// RunJacobi solves a random diagonally dominant system of size cfg.Size and
// reports the distance to its known solution.
func RunJacobi(ctx context.Context, mul multiplier.Multiplier, cfg config.AppConfig, out io.Writer) int {
	sys := solver.NewLinearSystem(cfg.Size, cfg.Seed, true)
	maybeDisplay(out, cfg, "A", sys.A)
	maybeDisplay(out, cfg, "b", sys.B)

	start := time.Now()
	res, err := solver.Jacobi(ctx, sys.A, sys.B, solverOptions(cfg, mul))
	elapsed := time.Since(start)
	if err != nil {
		return failSolver(err, elapsed, cfg, out)
	}

	report := models.SolverReport{
		Mode: cfg.Mode, N: cfg.Size, Algorithm: mul.Name(),
		Iterations:    res.Iterations,
		Delta:         res.Delta,
		Duration:      cli.FormatHumanDuration(elapsed),
		SolutionError: sys.SolutionError(res.Solution),
	}
	if !cfg.JSONOutput {
		maybeDisplay(out, cfg, "x", res.Solution)
		fmt.Fprintf(out, "Jacobi converged in %d iterations, %s. Solution error: %.2e\n",
			res.Iterations, report.Duration, report.SolutionError)
	}
	return finish(out, cfg, report)
}
