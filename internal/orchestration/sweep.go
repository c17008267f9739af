package orchestration

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agbru/matcalc/internal/cli"
	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/ui"
)

// SweepResult holds the benchmark of every strategy at one size.
type SweepResult struct {
	N       int
	Results []BenchmarkResult
	// Consistent is the CompareProducts verdict at this size.
	Consistent bool
}

// Sweep benchmarks every strategy at each size. It stops early when ctx is
// done; the sizes already measured are returned.
func Sweep(ctx context.Context, mults []multiplier.Multiplier, sizes []int, cfg config.AppConfig, out io.Writer) []SweepResult {
	sweep := make([]SweepResult, 0, len(sizes))
	for _, n := range sizes {
		if ctx.Err() != nil {
			break
		}
		step := cfg
		step.Size = n
		if !cfg.Quiet && !cfg.JSONOutput {
			fmt.Fprintf(out, "Size %s%d%s\n", ui.ColorBold(), n, ui.ColorReset())
		}
		results := RunBenchmarks(ctx, mults, step, out)
		consistent := CompareProducts(results)
		for i := range results {
			// Products are only needed for the comparison above.
			results[i].Product = nil
		}
		sweep = append(sweep, SweepResult{N: n, Results: results, Consistent: consistent})
	}
	return sweep
}

// SweepSeries turns a sweep into one plot series per strategy, keeping only
// the sizes at which the strategy succeeded.
func SweepSeries(sweep []SweepResult) []cli.Series {
	var series []cli.Series
	index := map[string]int{}
	for _, step := range sweep {
		for _, res := range step.Results {
			if res.Err != nil {
				continue
			}
			i, ok := index[res.Name]
			if !ok {
				i = len(series)
				index[res.Name] = i
				series = append(series, cli.Series{Name: res.Name})
			}
			series[i].Sizes = append(series[i].Sizes, step.N)
			series[i].Durations = append(series[i].Durations, res.Average)
		}
	}
	return series
}

// RunSweep runs -mode sweep: it benchmarks every strategy over
// cfg.SizeList, prints a size by strategy table and, when cfg.PlotFile is
// set, writes the chart. It returns the exit code.
func RunSweep(ctx context.Context, mults []multiplier.Multiplier, cfg config.AppConfig, out io.Writer) int {
	sizes, err := cfg.SizeList()
	if err != nil {
		return apperrors.HandleComputationError(err, 0, out, ui.ColorProvider{})
	}
	sweep := Sweep(ctx, mults, sizes, cfg, out)

	consistent := true
	var all []BenchmarkResult
	for _, step := range sweep {
		consistent = consistent && step.Consistent
		all = append(all, step.Results...)
	}
	successes, firstErr := countSuccesses(all)
	if firstErr == nil {
		firstErr = ctx.Err()
	}

	if cfg.JSONOutput {
		if err := cli.WriteJSON(out, BenchmarkReport(all, cfg.Repetitions, consistent)); err != nil {
			return apperrors.ExitErrorGeneric
		}
	} else {
		printSweepTable(out, mults, sweep)
	}

	if cfg.PlotFile != "" && successes > 0 {
		if err := cli.WriteSweepPlot(cfg.PlotFile, SweepSeries(sweep)); err != nil {
			fmt.Fprintf(out, "%sError:%s %v\n", ui.ColorRed(), ui.ColorReset(), err)
			return apperrors.ExitErrorGeneric
		}
		if !cfg.JSONOutput && !cfg.Quiet {
			fmt.Fprintf(out, "Chart written to %s\n", cfg.PlotFile)
		}
	}

	diag := out
	if cfg.JSONOutput {
		diag = io.Discard
	}
	switch {
	case firstErr != nil:
		return apperrors.HandleComputationError(firstErr, 0, diag, ui.ColorProvider{})
	case !consistent:
		fmt.Fprintf(diag, "Global Status: %sCRITICAL ERROR!%s The strategies returned different products.\n",
			ui.ColorRed(), ui.ColorReset())
		return apperrors.ExitErrorMismatch
	}
	return apperrors.ExitSuccess
}

func printSweepTable(out io.Writer, mults []multiplier.Multiplier, sweep []SweepResult) {
	fmt.Fprintf(out, "\n--- Sweep Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%sn%s", ui.ColorUnderline(), ui.ColorReset())
	for _, m := range mults {
		fmt.Fprintf(tw, "\t%s%s%s", ui.ColorUnderline(), m.Name(), ui.ColorReset())
	}
	fmt.Fprintln(tw)
	for _, step := range sweep {
		fmt.Fprintf(tw, "%d", step.N)
		for _, res := range step.Results {
			cell := cli.FormatHumanDuration(res.Average)
			if res.Err != nil {
				cell = ui.ColorRed() + "failed" + ui.ColorReset()
			}
			fmt.Fprintf(tw, "\t%s", cell)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}
}
