package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/testutil"
	"github.com/agbru/matcalc/pkg/models"
)

func solverConfig(mode string, n int) config.AppConfig {
	return config.AppConfig{
		Mode:            mode,
		Size:            n,
		Seed:            7,
		EdgeProbability: 0.3,
		Power:           3,
		Damping:         0.85,
		Epsilon:         1e-5,
		MaxIterations:   10_000,
	}
}

var blas = multiplier.Instrument(multiplier.BLASKernel{})

func TestRunSolvers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		run  func(context.Context, multiplier.Multiplier, config.AppConfig, *bytes.Buffer) int
		mode string
		want []string
	}{
		{
			name: "Power",
			run: func(ctx context.Context, m multiplier.Multiplier, c config.AppConfig, b *bytes.Buffer) int {
				return RunPower(ctx, m, c, b)
			},
			mode: config.ModePower,
			want: []string{"Walks of length 3", "Closed walks (trace):"},
		},
		{
			name: "PageRank",
			run: func(ctx context.Context, m multiplier.Multiplier, c config.AppConfig, b *bytes.Buffer) int {
				return RunPageRank(ctx, m, c, b)
			},
			mode: config.ModePageRank,
			want: []string{"Damped PageRank (d=0.85) converged in", "Largest gap to the exact solution:", "Rank", "Score"},
		},
		{
			name: "SimRank",
			run: func(ctx context.Context, m multiplier.Multiplier, c config.AppConfig, b *bytes.Buffer) int {
				return RunSimRank(ctx, m, c, b)
			},
			mode: config.ModeSimRank,
			want: []string{"SimRank similarity", "Converged in"},
		},
		{
			name: "Jacobi",
			run: func(ctx context.Context, m multiplier.Multiplier, c config.AppConfig, b *bytes.Buffer) int {
				return RunJacobi(ctx, m, c, b)
			},
			mode: config.ModeJacobi,
			want: []string{"Jacobi converged in", "Solution error:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			code := tt.run(context.Background(), blas, solverConfig(tt.mode, 12), &out)
			if code != apperrors.ExitSuccess {
				t.Fatalf("expected exit code %d, got %d. Output:\n%s", apperrors.ExitSuccess, code, out.String())
			}
			testutil.AssertContainsAll(t, out.String(), tt.want...)
		})
	}
}

func TestRunPageRankJSON(t *testing.T) {
	t.Parallel()
	cfg := solverConfig(config.ModePageRank, 10)
	cfg.JSONOutput = true
	var out bytes.Buffer
	if code := RunPageRank(context.Background(), blas, cfg, &out); code != apperrors.ExitSuccess {
		t.Fatalf("expected exit code %d, got %d", apperrors.ExitSuccess, code)
	}
	var report models.SolverReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not a solver report: %v\n%s", err, out.String())
	}
	if len(report.Ranking) != 10 {
		t.Fatalf("expected 10 ranked nodes, got %d", len(report.Ranking))
	}
	for i := 1; i < len(report.Ranking); i++ {
		if report.Ranking[i].Score > report.Ranking[i-1].Score {
			t.Errorf("ranking is not sorted at %d: %v > %v", i, report.Ranking[i].Score, report.Ranking[i-1].Score)
		}
	}
	if report.ExactDiff > 1e-3 {
		t.Errorf("expected damped scores within 1e-3 of the exact solution, got %g", report.ExactDiff)
	}
	if report.Algorithm != "blas" {
		t.Errorf("expected algorithm blas, got %q", report.Algorithm)
	}
}

func TestRunJacobiNotConverged(t *testing.T) {
	t.Parallel()
	cfg := solverConfig(config.ModeJacobi, 20)
	cfg.MaxIterations = 1
	var out bytes.Buffer
	if code := RunJacobi(context.Background(), blas, cfg, &out); code != apperrors.ExitErrorNotConverged {
		t.Errorf("expected exit code %d, got %d. Output:\n%s", apperrors.ExitErrorNotConverged, code, out.String())
	}
	testutil.AssertContainsAll(t, out.String(), "No convergence")
}

func TestRunPowerCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	if code := RunPower(ctx, blas, solverConfig(config.ModePower, 4), &out); code != apperrors.ExitErrorCanceled {
		t.Errorf("expected exit code %d, got %d", apperrors.ExitErrorCanceled, code)
	}
}

func TestSweepSeries(t *testing.T) {
	t.Parallel()
	sweep := []SweepResult{
		{N: 8, Results: []BenchmarkResult{{Name: "a", Average: time.Millisecond}, {Name: "b", Err: context.Canceled}}},
		{N: 16, Results: []BenchmarkResult{{Name: "a", Average: 2 * time.Millisecond}, {Name: "b", Average: time.Second}}},
	}
	series := SweepSeries(sweep)
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Name != "a" || len(series[0].Sizes) != 2 {
		t.Errorf("expected series a over 2 sizes, got %+v", series[0])
	}
	if series[1].Name != "b" || len(series[1].Sizes) != 1 || series[1].Sizes[0] != 16 {
		t.Errorf("expected series b at size 16 only, got %+v", series[1])
	}
}

func TestRunSweep(t *testing.T) {
	t.Parallel()
	plotFile := filepath.Join(t.TempDir(), "sweep.png")
	cfg := benchConfig(0, 1)
	cfg.Mode = config.ModeSweep
	cfg.Sizes = "4,9,16"
	cfg.Quiet = false
	cfg.PlotFile = plotFile

	mults := []multiplier.Multiplier{
		multiplier.Instrument(multiplier.DefinitionKernel{}),
		multiplier.Instrument(multiplier.StrassenKernel{Opts: multiplier.Options{Threshold: 2}}),
	}
	var out bytes.Buffer
	if code := RunSweep(context.Background(), mults, cfg, &out); code != apperrors.ExitSuccess {
		t.Fatalf("expected exit code %d, got %d. Output:\n%s", apperrors.ExitSuccess, code, out.String())
	}
	testutil.AssertContainsAll(t, out.String(), "--- Sweep Summary ---", "definition", "strassen", "Chart written to")
	info, err := os.Stat(plotFile)
	if err != nil {
		t.Fatalf("expected chart file: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("expected a non-empty chart file")
	}
}
