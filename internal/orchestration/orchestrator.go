// Package orchestration runs the matcalc benchmark and solver modes and
// reports their outcome, as text tables or JSON.
package orchestration

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/matcalc/internal/cli"
	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/ui"
	"github.com/agbru/matcalc/pkg/models"
)

// ConsistencyTolerance is the largest relative difference accepted between
// two strategies' products.
const ConsistencyTolerance = 1e-3

// ProgressBufferMultiplier defines the buffer size multiplier for the progress
// channel, so a slow terminal does not stall the benchmark loop.
const ProgressBufferMultiplier = 5

// BenchmarkResult is the outcome of running one strategy Runs times.
type BenchmarkResult struct {
	// Name is the registry key of the strategy.
	Name string
	// N is the operand size.
	N int
	// Runs is the number of completed products.
	Runs int
	// Average is Total / Runs.
	Average time.Duration
	Total   time.Duration
	// Product is the last product computed; nil if the strategy failed.
	Product *matrix.Matrix
	// MaxRelDiff is the distance to the reference product, set by
	// CompareProducts.
	MaxRelDiff float64
	Err        error
}

// Label is the phrase naming a strategy in the benchmark report.
func Label(name string) string {
	switch name {
	case "definition":
		return "by definition"
	case "blas":
		return "with BLAS"
	case "strassen":
		return "with Strassen's algorithm"
	case "strassen-parallel":
		return "with parallel Strassen's algorithm"
	}
	return "with " + name
}

// RandomOperands builds the two n x n benchmark operands concurrently: the
// left one from seed and the right one from seed+1.
func RandomOperands(ctx context.Context, n int, seed uint64) (lhs, rhs *matrix.Matrix, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lhs = matrix.New(n, n).Randomize(seed)
		return gctx.Err()
	})
	g.Go(func() error {
		rhs = matrix.New(n, n).Randomize(seed + 1)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

// showProgress reports whether the spinner should be drawn on out.
func showProgress(cfg config.AppConfig, out io.Writer) bool {
	return !cfg.Quiet && !cfg.JSONOutput && cli.IsTerminal(out)
}

// RunBenchmarks multiplies two random cfg.Size matrices with every
// strategy, cfg.Repetitions times each, and averages the wall time.
//
// Strategies run one after the other so their timings do not compete for
// cores. A failed strategy records its error and the next one still runs.
// Once ctx is done the remaining strategies are skipped and carry its error.
//
// Parameters:
//   - ctx: Cancels the run.
//   - mults: The strategies, in report order.
//   - cfg: Size, repetitions, seed and output settings.
//   - out: Where progress is drawn.
//
// Returns:
//   - []BenchmarkResult: One entry per strategy, in the order of mults.
func RunBenchmarks(ctx context.Context, mults []multiplier.Multiplier, cfg config.AppConfig, out io.Writer) []BenchmarkResult {
	results := make([]BenchmarkResult, len(mults))
	for i, m := range mults {
		results[i] = BenchmarkResult{Name: m.Name(), N: cfg.Size}
	}
	lhs, rhs, err := RandomOperands(ctx, cfg.Size, cfg.Seed)
	if err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results
	}

	reps := max(cfg.Repetitions, 1)
	progressChan := make(chan cli.ProgressUpdate, len(mults)*ProgressBufferMultiplier)
	shown := 0
	if showProgress(cfg, out) {
		shown = len(mults)
	}
	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, shown, out)

	for i, m := range mults {
		runStrategy(ctx, &results[i], i, m, lhs, rhs, reps, progressChan)
		if err := results[i].Err; apperrors.IsContextError(err) && ctx.Err() != nil {
			for j := i + 1; j < len(results); j++ {
				results[j].Err = apperrors.ComputationError{Op: results[j].Name, Cause: ctx.Err()}
			}
			break
		}
	}

	close(progressChan)
	displayWg.Wait()
	return results
}

func runStrategy(ctx context.Context, res *BenchmarkResult, idx int, m multiplier.Multiplier, lhs, rhs *matrix.Matrix, reps int, progress chan<- cli.ProgressUpdate) {
	for r := 0; r < reps; r++ {
		start := time.Now()
		product, err := m.Multiply(ctx, lhs, rhs)
		elapsed := time.Since(start)
		if err != nil {
			res.Err = apperrors.ComputationError{Op: m.Name(), Cause: err}
			return
		}
		res.Total += elapsed
		res.Runs++
		res.Product = product
		progress <- cli.ProgressUpdate{Index: idx, Value: float64(r+1) / float64(reps)}
	}
	res.Average = res.Total / time.Duration(res.Runs)
}

// CompareProducts measures every successful product against the first one
// and reports whether all of them agree within ConsistencyTolerance. With
// no successful result it returns true.
func CompareProducts(results []BenchmarkResult) bool {
	var ref *matrix.Matrix
	consistent := true
	for i := range results {
		res := &results[i]
		if res.Err != nil || res.Product == nil {
			continue
		}
		if ref == nil {
			ref = res.Product
			continue
		}
		res.MaxRelDiff = matrix.MaxRelDiff(ref, res.Product)
		if res.MaxRelDiff > ConsistencyTolerance {
			consistent = false
		}
	}
	return consistent
}

// BenchmarkReport converts results to their JSON document.
func BenchmarkReport(results []BenchmarkResult, reps int, consistent bool) models.BenchmarkReport {
	report := models.BenchmarkReport{Repetitions: reps, Consistent: consistent}
	for _, res := range results {
		entry := models.BenchmarkEntry{
			Algorithm:    res.Name,
			N:            res.N,
			Runs:         res.Runs,
			AverageMicro: res.Average.Microseconds(),
			Average:      cli.FormatHumanDuration(res.Average),
			MaxRelDiff:   res.MaxRelDiff,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		report.Results = append(report.Results, entry)
	}
	return report
}

// AnalyzeBenchmarkResults prints the benchmark report and returns the exit
// code: success, ExitErrorMismatch when products disagree, or the code of
// the first error when every strategy failed.
func AnalyzeBenchmarkResults(results []BenchmarkResult, cfg config.AppConfig, out io.Writer) int {
	consistent := CompareProducts(results)
	successes, firstErr := countSuccesses(results)

	if cfg.JSONOutput {
		if err := cli.WriteJSON(out, BenchmarkReport(results, cfg.Repetitions, consistent)); err != nil {
			return apperrors.ExitErrorGeneric
		}
		return exitCode(successes, consistent, firstErr, io.Discard)
	}

	fmt.Fprintf(out, "%d launches were carried out.\n", cfg.Repetitions)
	for _, res := range results {
		if res.Err == nil {
			fmt.Fprintf(out, "The multiplication %s average duration of two %dx%d square matrices is %s.\n",
				Label(res.Name), res.N, res.N, cli.FormatHumanDuration(res.Average))
		}
	}
	if !cfg.Quiet {
		printSummary(out, results)
	}

	switch {
	case successes == 0:
		fmt.Fprintf(out, "\nGlobal Status: Failure. No strategy could complete the multiplication.\n")
	case !consistent:
		fmt.Fprintf(out, "\nGlobal Status: %sCRITICAL ERROR!%s The strategies returned different products.\n",
			ui.ColorRed(), ui.ColorReset())
	case !cfg.Quiet:
		fmt.Fprintf(out, "\nGlobal Status: Success. All products agree within %g.\n", ConsistencyTolerance)
	}
	return exitCode(successes, consistent, firstErr, out)
}

// countSuccesses returns the number of successful results and the first
// error.
func countSuccesses(results []BenchmarkResult) (int, error) {
	var first error
	successes := 0
	for _, res := range results {
		if res.Err != nil {
			if first == nil {
				first = res.Err
			}
			continue
		}
		successes++
	}
	return successes, first
}

func exitCode(successes int, consistent bool, firstErr error, out io.Writer) int {
	switch {
	case successes == 0 && firstErr != nil:
		return apperrors.HandleComputationError(firstErr, 0, out, ui.ColorProvider{})
	case !consistent:
		return apperrors.ExitErrorMismatch
	}
	return apperrors.ExitSuccess
}

// printSummary prints the comparison table, fastest successful strategy
// first.
func printSummary(out io.Writer, results []BenchmarkResult) {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b BenchmarkResult) int {
		if (a.Err == nil) != (b.Err == nil) {
			if a.Err == nil {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Average, b.Average)
	})

	fmt.Fprintf(out, "\n--- Comparison Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%sAlgorithm%s\t%sAverage%s\t%sRuns%s\t%sMax rel. diff%s\t%sStatus%s\n",
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(),
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(),
		ui.ColorUnderline(), ui.ColorReset())
	for _, res := range sorted {
		status := fmt.Sprintf("%sSuccess%s", ui.ColorGreen(), ui.ColorReset())
		average := cli.FormatHumanDuration(res.Average)
		if res.Err != nil {
			status = fmt.Sprintf("%sFailure (%v)%s", ui.ColorRed(), res.Err, ui.ColorReset())
			average = "-"
		} else if res.MaxRelDiff > ConsistencyTolerance {
			status = fmt.Sprintf("%sMismatch%s", ui.ColorRed(), ui.ColorReset())
		}
		fmt.Fprintf(tw, "%s%s%s\t%s%s%s\t%d\t%.2e\t%s\n",
			ui.ColorBlue(), res.Name, ui.ColorReset(),
			ui.ColorYellow(), average, ui.ColorReset(),
			res.Runs, res.MaxRelDiff, status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}
}
