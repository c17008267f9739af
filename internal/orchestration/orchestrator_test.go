package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/testutil"
	"github.com/agbru/matcalc/pkg/models"
)

// MockMultiplier is a hand-written multiplier.Multiplier used for testing the
// orchestration logic without invoking real kernels.
type MockMultiplier struct {
	NameValue    string
	MultiplyFunc func(ctx context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error)
}

func (m *MockMultiplier) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *MockMultiplier) Multiply(ctx context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	if m.MultiplyFunc != nil {
		return m.MultiplyFunc(ctx, lhs, rhs)
	}
	return matrix.New(lhs.Rows(), rhs.Cols()), nil
}

func constant(name string, v float32) *MockMultiplier {
	return &MockMultiplier{
		NameValue: name,
		MultiplyFunc: func(_ context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
			return matrix.New(lhs.Rows(), rhs.Cols()).AddScalar(matrix.New(lhs.Rows(), rhs.Cols()), v), nil
		},
	}
}

func failing(name string, err error) *MockMultiplier {
	return &MockMultiplier{
		NameValue: name,
		MultiplyFunc: func(context.Context, *matrix.Matrix, *matrix.Matrix) (*matrix.Matrix, error) {
			return nil, err
		},
	}
}

func benchConfig(n, reps int) config.AppConfig {
	return config.AppConfig{Mode: config.ModeBench, Size: n, Repetitions: reps, Seed: 42, Quiet: true}
}

// TestRunBenchmarks verifies that every strategy runs the requested number of
// times and that failures are recorded per strategy.
func TestRunBenchmarks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		mults        []multiplier.Multiplier
		reps         int
		expectedRuns []int
		expectError  []bool
	}{
		{
			name:         "Single success",
			mults:        []multiplier.Multiplier{constant("a", 1)},
			reps:         3,
			expectedRuns: []int{3},
			expectError:  []bool{false},
		},
		{
			name:         "Failure does not stop the next strategy",
			mults:        []multiplier.Multiplier{failing("bad", errors.New("mock error")), constant("good", 1)},
			reps:         2,
			expectedRuns: []int{0, 2},
			expectError:  []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			results := RunBenchmarks(context.Background(), tt.mults, benchConfig(4, tt.reps), io.Discard)
			if len(results) != len(tt.mults) {
				t.Fatalf("expected %d results, got %d", len(tt.mults), len(results))
			}
			for i, res := range results {
				if res.Runs != tt.expectedRuns[i] {
					t.Errorf("%s: expected %d runs, got %d", res.Name, tt.expectedRuns[i], res.Runs)
				}
				if (res.Err != nil) != tt.expectError[i] {
					t.Errorf("%s: expected error=%v, got %v", res.Name, tt.expectError[i], res.Err)
				}
				if res.Err == nil && res.Product == nil {
					t.Errorf("%s: expected a product", res.Name)
				}
				if res.N != 4 {
					t.Errorf("%s: expected N=4, got %d", res.Name, res.N)
				}
			}
		})
	}
}

func TestRunBenchmarksCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := RunBenchmarks(ctx, []multiplier.Multiplier{constant("a", 1)}, benchConfig(4, 1), io.Discard)
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}

func TestRunBenchmarksStopsAfterCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := &MockMultiplier{
		NameValue: "first",
		MultiplyFunc: func(ctx context.Context, _, _ *matrix.Matrix) (*matrix.Matrix, error) {
			cancel()
			return nil, ctx.Err()
		},
	}
	secondCalls := 0
	second := &MockMultiplier{
		NameValue: "second",
		MultiplyFunc: func(_ context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
			secondCalls++
			return matrix.New(lhs.Rows(), rhs.Cols()), nil
		},
	}

	results := RunBenchmarks(ctx, []multiplier.Multiplier{first, second}, benchConfig(4, 3), io.Discard)
	if secondCalls != 0 {
		t.Errorf("expected no call after cancellation, got %d", secondCalls)
	}
	for _, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", res.Name, res.Err)
		}
	}
	var out bytes.Buffer
	if code := AnalyzeBenchmarkResults(results, benchConfig(4, 3), &out); code != apperrors.ExitErrorCanceled {
		t.Errorf("expected exit code %d, got %d", apperrors.ExitErrorCanceled, code)
	}
}

// TestRunBenchmarksRealStrategies runs the built-in strategies on a size
// that exercises Strassen's odd-size fallback.
func TestRunBenchmarksRealStrategies(t *testing.T) {
	t.Parallel()
	factory := multiplier.NewDefaultFactory(multiplier.Options{Threshold: 8})
	var mults []multiplier.Multiplier
	for _, name := range factory.List() {
		m, err := factory.Get(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mults = append(mults, m)
	}

	var out bytes.Buffer
	cfg := benchConfig(37, 2)
	cfg.Quiet = false
	results := RunBenchmarks(context.Background(), mults, cfg, &out)
	if code := AnalyzeBenchmarkResults(results, cfg, &out); code != apperrors.ExitSuccess {
		t.Fatalf("expected exit code %d, got %d. Output:\n%s", apperrors.ExitSuccess, code, out.String())
	}
	testutil.AssertContainsAll(t, out.String(),
		"2 launches were carried out.",
		"The multiplication by definition average duration of two 37x37 square matrices is",
		"The multiplication with BLAS average duration",
		"The multiplication with Strassen's algorithm average duration",
		"The multiplication with parallel Strassen's algorithm average duration",
		"Global Status: Success",
	)
}

// TestAnalyzeBenchmarkResults verifies the comparison of products across
// strategies, the handling of failures and the detection of mismatches.
func TestAnalyzeBenchmarkResults(t *testing.T) {
	t.Parallel()
	ones := matrix.FromRows([][]float32{{1, 1}, {1, 1}})
	twos := matrix.FromRows([][]float32{{2, 2}, {2, 2}})
	tests := []struct {
		name           string
		results        []BenchmarkResult
		expectedStatus int
	}{
		{
			name: "All success",
			results: []BenchmarkResult{
				{Name: "A", N: 2, Runs: 1, Product: ones, Average: time.Millisecond},
				{Name: "B", N: 2, Runs: 1, Product: ones.Clone(), Average: time.Millisecond},
			},
			expectedStatus: apperrors.ExitSuccess,
		},
		{
			name: "Mismatch",
			results: []BenchmarkResult{
				{Name: "A", N: 2, Runs: 1, Product: ones, Average: time.Millisecond},
				{Name: "B", N: 2, Runs: 1, Product: twos, Average: time.Millisecond},
			},
			expectedStatus: apperrors.ExitErrorMismatch,
		},
		{
			name: "All failure",
			results: []BenchmarkResult{
				{Name: "A", N: 2, Err: errors.New("fail")},
				{Name: "B", N: 2, Err: errors.New("fail")},
			},
			expectedStatus: apperrors.ExitErrorGeneric,
		},
		{
			name: "All timed out",
			results: []BenchmarkResult{
				{Name: "A", N: 2, Err: apperrors.ComputationError{Op: "A", Cause: context.DeadlineExceeded}},
			},
			expectedStatus: apperrors.ExitErrorTimeout,
		},
		{
			name: "Mixed success/failure",
			results: []BenchmarkResult{
				{Name: "A", N: 2, Runs: 1, Product: ones, Average: time.Millisecond},
				{Name: "B", N: 2, Err: errors.New("fail")},
			},
			expectedStatus: apperrors.ExitSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status := AnalyzeBenchmarkResults(tt.results, benchConfig(2, 1), io.Discard)
			if status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, status)
			}
		})
	}
}

func TestAnalyzeBenchmarkResultsJSON(t *testing.T) {
	t.Parallel()
	results := RunBenchmarks(context.Background(),
		[]multiplier.Multiplier{constant("a", 1), constant("b", 1), failing("c", errors.New("boom"))},
		benchConfig(3, 2), io.Discard)

	cfg := benchConfig(3, 2)
	cfg.JSONOutput = true
	var out bytes.Buffer
	if code := AnalyzeBenchmarkResults(results, cfg, &out); code != apperrors.ExitSuccess {
		t.Fatalf("expected exit code %d, got %d", apperrors.ExitSuccess, code)
	}
	var report models.BenchmarkReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not a benchmark report: %v\n%s", err, out.String())
	}
	if !report.Consistent || report.Repetitions != 2 || len(report.Results) != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Results[2].Error == "" {
		t.Errorf("expected the failing strategy to carry its error")
	}
	if report.Results[0].Runs != 2 {
		t.Errorf("expected 2 runs, got %d", report.Results[0].Runs)
	}
}

func TestCompareProducts(t *testing.T) {
	t.Parallel()
	ref := matrix.FromRows([][]float32{{100, 0}, {0, 100}})
	near := matrix.FromRows([][]float32{{100.01, 0}, {0, 100}})
	results := []BenchmarkResult{
		{Name: "failed", Err: errors.New("x")},
		{Name: "ref", Product: ref},
		{Name: "near", Product: near},
	}
	if !CompareProducts(results) {
		t.Errorf("expected products within tolerance to be consistent")
	}
	if results[2].MaxRelDiff <= 0 || results[2].MaxRelDiff > ConsistencyTolerance {
		t.Errorf("expected a small positive difference, got %g", results[2].MaxRelDiff)
	}
	if results[1].MaxRelDiff != 0 {
		t.Errorf("expected the reference to have no difference, got %g", results[1].MaxRelDiff)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"definition":        "by definition",
		"blas":              "with BLAS",
		"strassen":          "with Strassen's algorithm",
		"strassen-parallel": "with parallel Strassen's algorithm",
		"custom":            "with custom",
	}
	for name, want := range tests {
		if got := Label(name); got != want {
			t.Errorf("Label(%q): expected %q, got %q", name, want, got)
		}
	}
}
