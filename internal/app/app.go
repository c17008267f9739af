package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/agbru/matcalc/internal/calibration"
	"github.com/agbru/matcalc/internal/config"
	apperrors "github.com/agbru/matcalc/internal/errors"
	"github.com/agbru/matcalc/internal/logging"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/orchestration"
	"github.com/agbru/matcalc/internal/parallel"
	"github.com/agbru/matcalc/internal/server"
	"github.com/agbru/matcalc/internal/ui"
)

// DefaultSolverAlgorithm multiplies inside the solver modes when -algo is
// left at "all".
const DefaultSolverAlgorithm = "blas"

// Application is one matcalc invocation: the parsed configuration and the
// strategy registry it runs against.
type Application struct {
	Config  config.AppConfig
	Factory *multiplier.DefaultFactory
	// ErrWriter receives diagnostics, typically os.Stderr.
	ErrWriter io.Writer
}

// New parses args (args[0] is the program name) and applies the
// process-wide settings: worker count, log level and the default Strassen
// threshold.
//
// The threshold comes from -strassen-threshold if given, else from a valid
// calibration profile, else from the hardware estimate.
func New(args []string, errWriter io.Writer) (*Application, error) {
	factory := multiplier.NewDefaultFactory(multiplier.Options{})

	programName := "matcalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, factory.List())
	if err != nil {
		return nil, err
	}
	if err := logging.SetGlobalLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(errWriter, "Configuration error:", err)
		return nil, apperrors.NewConfigError("%v", err)
	}
	parallel.SetWorkers(cfg.Workers)

	cfg = applyStrassenThreshold(cfg)
	multiplier.SetDefaultStrassenThreshold(cfg.StrassenThreshold)

	return &Application{
		Config:    cfg,
		Factory:   factory,
		ErrWriter: errWriter,
	}, nil
}

// applyStrassenThreshold fills a zero StrassenThreshold from the cached
// profile or the hardware heuristic. Calibration runs keep zero so they
// never read their own stale result.
func applyStrassenThreshold(cfg config.AppConfig) config.AppConfig {
	if cfg.StrassenThreshold != 0 || cfg.Mode == config.ModeCalibrate {
		return cfg
	}
	if updated, ok := calibration.LoadCachedCalibration(cfg, cfg.CalibrationProfile); ok && updated.StrassenThreshold > 0 {
		return updated
	}
	cfg.StrassenThreshold = calibration.EstimateOptimalStrassenThreshold()
	return cfg
}

// Run dispatches on the configured mode and returns the exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	ui.InitTheme(a.Config.NoColor)

	if a.Config.ServerMode {
		return a.runServer(ctx)
	}

	ctx, cancels := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancels.Cleanup()

	switch a.Config.Mode {
	case config.ModeBench:
		results := orchestration.RunBenchmarks(ctx, a.multipliers(), a.Config, out)
		return orchestration.AnalyzeBenchmarkResults(results, a.Config, out)
	case config.ModeSweep:
		return orchestration.RunSweep(ctx, a.multipliers(), a.Config, out)
	case config.ModeCalibrate:
		return calibration.RunCalibration(ctx, a.Config, out)
	}

	mul, err := a.solverMultiplier()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Configuration error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	switch a.Config.Mode {
	case config.ModePower:
		return orchestration.RunPower(ctx, mul, a.Config, out)
	case config.ModePageRank:
		return orchestration.RunPageRank(ctx, mul, a.Config, out)
	case config.ModeSimRank:
		return orchestration.RunSimRank(ctx, mul, a.Config, out)
	case config.ModeJacobi:
		return orchestration.RunJacobi(ctx, mul, a.Config, out)
	}
	fmt.Fprintf(a.ErrWriter, "Configuration error: unknown mode %q\n", a.Config.Mode)
	return apperrors.ExitErrorConfig
}

// multipliers resolves -algo in the order given, or in registry order for
// "all". A strategy appears once even if tuning maps two names onto it.
func (a *Application) multipliers() []multiplier.Multiplier {
	var out []multiplier.Multiplier
	seen := make(map[string]bool)
	for _, name := range a.Config.AlgoList(a.Factory.List()) {
		m, err := a.Factory.Get(name)
		if err != nil {
			continue
		}
		m = a.tune(name, m)
		if !seen[m.Name()] {
			seen[m.Name()] = true
			out = append(out, m)
		}
	}
	return out
}

// tune swaps in a fresh Strassen instance when -parallel-strassen asks for
// the forking variant under the sequential name.
func (a *Application) tune(name string, m multiplier.Multiplier) multiplier.Multiplier {
	if name == "strassen" && a.Config.ParallelStrassen {
		if pm, err := a.Factory.Get("strassen-parallel"); err == nil {
			return pm
		}
	}
	return m
}

// solverMultiplier is the first strategy of -algo, or
// DefaultSolverAlgorithm for "all".
func (a *Application) solverMultiplier() (multiplier.Multiplier, error) {
	name := DefaultSolverAlgorithm
	if names := a.Config.AlgoList(nil); len(names) > 0 {
		name = names[0]
	}
	m, err := a.Factory.Get(name)
	if err != nil {
		return nil, err
	}
	return a.tune(name, m), nil
}

func (a *Application) runServer(ctx context.Context) int {
	srv := server.NewServer(a.Factory, a.Config)
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(a.ErrWriter, "Server error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// IsHelpError reports whether err comes from -h or -help.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
