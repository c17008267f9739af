package calibration

import (
	"context"
	"slices"
	"time"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
)

// calibrationResult holds the result of a single threshold test.
type calibrationResult struct {
	Threshold int
	Duration  time.Duration
	Err       error
}

// calibrationRunner encapsulates the trial run logic for calibration.
type calibrationRunner struct {
	ctx        context.Context
	perTrial   time.Duration
	iterations int
	parallel   bool
	lhs, rhs   *matrix.Matrix
}

// newCalibrationRunner creates a runner timing n x n products. Each
// candidate gets an equal share of timeout, with a floor of two seconds.
func newCalibrationRunner(ctx context.Context, n, iterations int, parallel bool, seed uint64, timeout time.Duration, candidates int) *calibrationRunner {
	perTrial := timeout / time.Duration(max(candidates, 1))
	if perTrial < 2*time.Second {
		perTrial = 2 * time.Second
	}
	return &calibrationRunner{
		ctx:        ctx,
		perTrial:   perTrial,
		iterations: max(iterations, 1),
		parallel:   parallel,
		lhs:        matrix.New(n, n).Randomize(seed),
		rhs:        matrix.New(n, n).Randomize(seed + 1),
	}
}

// runTrial times Strassen with the given threshold and returns the median
// of the completed iterations. A product cannot be interrupted, so the
// per-trial deadline is checked between iterations.
func (r *calibrationRunner) runTrial(threshold int) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.perTrial)
	defer cancel()
	m := multiplier.Instrument(multiplier.StrassenKernel{
		Opts: multiplier.Options{Threshold: threshold, Parallel: r.parallel},
	})

	durations := make([]time.Duration, 0, r.iterations)
	for i := 0; i < r.iterations; i++ {
		start := time.Now()
		if _, err := m.Multiply(ctx, r.lhs, r.rhs); err != nil {
			if len(durations) > 0 && ctx.Err() != nil && r.ctx.Err() == nil {
				// Out of time for this candidate; keep what was measured.
				break
			}
			return 0, err
		}
		durations = append(durations, time.Since(start))
	}
	slices.Sort(durations)
	return durations[len(durations)/2], nil
}

// findBestThreshold times every candidate and returns the per-candidate
// results and the fastest threshold. ok is false when no candidate
// completed. It stops at the first error caused by the parent context.
func (r *calibrationRunner) findBestThreshold(candidates []int, onDone func(done int)) (results []calibrationResult, best int, ok bool) {
	bestDur := time.Duration(1<<63 - 1)
	for i, cand := range candidates {
		dur, err := r.runTrial(cand)
		results = append(results, calibrationResult{Threshold: cand, Duration: dur, Err: err})
		if onDone != nil {
			onDone(i + 1)
		}
		if err != nil {
			if r.ctx.Err() != nil {
				return results, best, ok
			}
			continue
		}
		if dur < bestDur {
			bestDur, best, ok = dur, cand, true
		}
	}
	return results, best, ok
}
