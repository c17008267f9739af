package calibration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/agbru/matcalc/internal/cli"
	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/ui"
)

// CalibrationOptions configures the calibration process.
type CalibrationOptions struct {
	// ProfilePath is the path to save/load the calibration profile.
	// If empty, uses the default path.
	ProfilePath string
	// SaveProfile indicates whether to save the calibration results.
	SaveProfile bool
	// LoadProfile indicates whether to try loading an existing profile.
	LoadProfile bool
	// Quick times only the candidates around the heuristic estimate.
	Quick bool
}

// RunCalibration times Strassen on cfg.Size matrices for every candidate
// threshold, reports the fastest and saves it to the profile.
//
// Each candidate is timed cfg.Repetitions times and the median is kept.
// cfg.ParallelStrassen selects which Strassen variant is tuned.
//
// Parameters:
//   - ctx: Cancels the remaining candidates.
//   - cfg: The configuration (size, repetitions, profile path).
//   - out: Where progress and the summary are written.
//
// Returns:
//   - int: The exit code (0 for success, non-zero for errors).
func RunCalibration(ctx context.Context, cfg config.AppConfig, out io.Writer) int {
	return RunCalibrationWithOptions(ctx, cfg, out, CalibrationOptions{
		ProfilePath: cfg.CalibrationProfile,
		SaveProfile: true,
	})
}

// RunCalibrationWithOptions executes calibration with the specified options.
// With opts.LoadProfile set, a valid profile younger than MaxProfileAge is
// reported and no timing is done.
//
// Parameters:
//   - ctx: Cancels the remaining candidates.
//   - cfg: The configuration.
//   - out: Where progress and the summary are written.
//   - opts: Profile loading and saving behaviour.
//
// Returns:
//   - int: The exit code.
func RunCalibrationWithOptions(ctx context.Context, cfg config.AppConfig, out io.Writer, opts CalibrationOptions) int {
	fmt.Fprintf(out, "--- Calibration Mode: Finding the Optimal Strassen Threshold ---\n")

	if opts.LoadProfile && ProfileExists(opts.ProfilePath) {
		if profile, loaded := LoadOrCreateProfile(opts.ProfilePath); loaded && !profile.IsStale(MaxProfileAge) {
			fmt.Fprintf(out, "%sLoaded existing calibration profile from %s%s\n",
				ui.ColorGreen(), resolvePath(opts.ProfilePath), ui.ColorReset())
			fmt.Fprintf(out, "Profile: %s\n", profile.String())
			printRecommendation(out, profile.OptimalStrassenThreshold)
			return apperrors.ExitSuccess
		}
	}

	n := cfg.Size
	if n < multiplier.MinStrassenThreshold {
		n = config.DefaultCalibrationSize
	}
	candidates := GenerateThresholdCandidates(n)
	if opts.Quick {
		candidates = GenerateQuickThresholdCandidates(n)
	}
	fmt.Fprintf(out, "%sTiming %d thresholds on %dx%d matrices (CPU features: %v)%s\n",
		ui.ColorCyan(), len(candidates), n, n, CPUFeatures(), ui.ColorReset())

	calibrationStart := time.Now()
	runner := newCalibrationRunner(ctx, n, cfg.Repetitions, cfg.ParallelStrassen, cfg.Seed, cfg.Timeout, len(candidates))

	var wg sync.WaitGroup
	progressChan := make(chan cli.ProgressUpdate, len(candidates)+1)
	shown := 0
	if !cfg.Quiet && cli.IsTerminal(out) {
		shown = 1
	}
	wg.Add(1)
	go cli.DisplayProgress(&wg, progressChan, shown, out)
	results, best, ok := runner.findBestThreshold(candidates, func(done int) {
		progressChan <- cli.ProgressUpdate{Index: 0, Value: float64(done) / float64(len(candidates))}
	})
	close(progressChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		fmt.Fprintf(out, "\n%sCalibration interrupted.%s\n", ui.ColorYellow(), ui.ColorReset())
		return apperrors.HandleComputationError(err, time.Since(calibrationStart), out, ui.ColorProvider{})
	}
	if !ok {
		fmt.Fprintf(out, "\n%sCalibration failed: no valid results obtained.%s\n", ui.ColorRed(), ui.ColorReset())
		return apperrors.ExitErrorGeneric
	}

	printCalibrationResults(out, results, best)
	printRecommendation(out, best)

	if opts.SaveProfile {
		saveCalibrationProfile(best, n, cfg.ParallelStrassen, confidence(results), time.Since(calibrationStart), opts.ProfilePath, out)
	}
	return apperrors.ExitSuccess
}

// confidence is the share of candidates that completed.
func confidence(results []calibrationResult) float64 {
	if len(results) == 0 {
		return 0
	}
	done := 0
	for _, r := range results {
		if r.Err == nil {
			done++
		}
	}
	return float64(done) / float64(len(results))
}

// LoadCachedCalibration applies the threshold a cached profile holds for
// cfg.Size to cfg. An explicit -strassen-threshold wins over the profile.
//
// Parameters:
//   - cfg: The parsed configuration.
//   - profilePath: The profile location; empty means the default path.
//
// Returns:
//   - config.AppConfig: cfg with StrassenThreshold filled in.
//   - bool: true if a profile valid for this machine and younger than
//     MaxProfileAge was found.
func LoadCachedCalibration(cfg config.AppConfig, profilePath string) (updated config.AppConfig, ok bool) {
	profile, loaded := LoadOrCreateProfile(profilePath)
	if !loaded || profile.IsStale(MaxProfileAge) {
		return cfg, false
	}
	updated = cfg
	if updated.StrassenThreshold == 0 {
		updated.StrassenThreshold = profile.GetThresholdForSize(cfg.Size)
	}
	return updated, true
}

// saveCalibrationProfile merges the result into the profile at profilePath,
// keeping the size ranges measured by earlier runs on this machine.
func saveCalibrationProfile(best, n int, parallel bool, conf float64, took time.Duration, profilePath string, out io.Writer) {
	profile, _ := LoadOrCreateProfile(profilePath)
	profile.CalibratedAt = time.Now()
	profile.OptimalStrassenThreshold = best
	profile.CalibrationSize = n
	profile.CalibrationTime = took.Round(time.Millisecond).String()
	profile.Parallel = parallel

	minN, maxN := SizeRange(n)
	profile.AddSizeThreshold(SizeThreshold{
		MinN:              minN,
		MaxN:              maxN,
		StrassenThreshold: best,
		ConfidenceScore:   conf,
		MeasurementCount:  1,
	})

	if err := profile.SaveProfile(profilePath); err != nil {
		fmt.Fprintf(out, "%sWarning: failed to save profile: %v%s\n",
			ui.ColorYellow(), err, ui.ColorReset())
		return
	}
	fmt.Fprintf(out, "%sCalibration profile saved to %s%s\n",
		ui.ColorGreen(), resolvePath(profilePath), ui.ColorReset())
}
