// Package config builds the matcalc configuration from command-line flags,
// MATCALC_* environment variables and an optional YAML file, and validates
// the result.
package config

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/agbru/matcalc/internal/errors"
)

// EnvPrefix prefixes every environment variable read by matcalc.
const EnvPrefix = "MATCALC_"

// Run modes.
const (
	ModeBench     = "bench"
	ModeSweep     = "sweep"
	ModePower     = "power"
	ModePageRank  = "pagerank"
	ModeSimRank   = "simrank"
	ModeJacobi    = "jacobi"
	ModeCalibrate = "calibrate"
)

// Modes lists the accepted values of -mode.
var Modes = []string{ModeBench, ModeSweep, ModePower, ModePageRank, ModeSimRank, ModeJacobi, ModeCalibrate}

// Defaults.
const (
	DefaultMode          = ModeBench
	DefaultRepetitions   = 1
	DefaultAlgos         = "all"
	DefaultSeed          = 42
	DefaultTimeout       = 10 * time.Minute
	DefaultPower         = 4
	DefaultDamping       = 0.85
	DefaultEpsilon       = 1e-5
	DefaultMaxIterations = 10_000
	DefaultSizes         = "64,128,256,512"
	DefaultPort          = "8080"
	DefaultMaxServerSize = 2048
	DefaultLogLevel      = "info"

	// DefaultGraphNodes is the node count of the graph modes when -n is
	// not given.
	DefaultGraphNodes = 8
	// DefaultCalibrationSize is the matrix size timed by -mode calibrate.
	DefaultCalibrationSize = 512
)

// AppConfig is the parsed and validated configuration.
type AppConfig struct {
	Mode        string
	Size        int
	Repetitions int
	// Algos is "all" or a comma-separated list of strategy names.
	Algos string
	Seed  uint64
	// Workers is the worker count for row-parallel loops; 0 means GOMAXPROCS.
	Workers int
	// StrassenThreshold is the size at or below which Strassen falls back to
	// the definition kernel; 0 keeps the current default.
	StrassenThreshold int
	ParallelStrassen  bool
	Timeout           time.Duration

	EdgeProbability float64
	Power           uint64
	Damping         float64
	Epsilon         float64
	MaxIterations   int
	// Sizes is the comma-separated size list of -mode sweep.
	Sizes    string
	PlotFile string

	JSONOutput bool
	Quiet      bool
	NoColor    bool
	// Verbose prints the matrices of the graph and solver modes.
	Verbose  bool
	LogLevel string

	ServerMode    bool
	Port          string
	MaxServerSize int

	CalibrationProfile string
	ConfigFile         string
}

// AlgoList expands Algos against the available strategy names.
func (c AppConfig) AlgoList(available []string) []string {
	if c.Algos == "" || c.Algos == "all" {
		return slices.Clone(available)
	}
	var out []string
	for _, name := range strings.Split(c.Algos, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// SizeList parses Sizes.
func (c AppConfig) SizeList() ([]int, error) {
	var out []int
	for _, field := range strings.Split(c.Sizes, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 {
			return nil, apperrors.NewConfigError("invalid sweep size %q", field)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, apperrors.NewConfigError("sweep needs at least one size")
	}
	return out, nil
}

// Validate checks value ranges and strategy names. It returns a ConfigError.
func (c AppConfig) Validate(availableAlgos []string) error {
	if !slices.Contains(Modes, c.Mode) {
		return apperrors.NewConfigError("unknown mode %q, valid modes are [%s]", c.Mode, strings.Join(Modes, ", "))
	}
	if !c.ServerMode && c.Mode != ModeSweep && c.Size < 1 {
		return apperrors.NewFieldError("n", c.Size, "matrix size must be at least 1, got %d", c.Size)
	}
	if c.Repetitions < 1 {
		return apperrors.NewFieldError("reps", c.Repetitions, "repetitions must be at least 1, got %d", c.Repetitions)
	}
	if c.Timeout <= 0 {
		return apperrors.NewFieldError("timeout", c.Timeout, "timeout value must be strictly positive")
	}
	if c.Workers < 0 {
		return apperrors.NewFieldError("workers", c.Workers, "worker count cannot be negative: %d", c.Workers)
	}
	if c.StrassenThreshold < 0 || c.StrassenThreshold == 1 {
		return apperrors.NewFieldError("strassen-threshold", c.StrassenThreshold, "strassen threshold must be 0 or at least 2, got %d", c.StrassenThreshold)
	}
	if c.EdgeProbability < 0 || c.EdgeProbability > 1 {
		return apperrors.NewFieldError("p", c.EdgeProbability, "edge probability must be in [0, 1], got %v", c.EdgeProbability)
	}
	if c.Damping <= 0 || c.Damping > 1 {
		return apperrors.NewFieldError("damping", c.Damping, "damping must be in (0, 1], got %v", c.Damping)
	}
	if c.Epsilon <= 0 {
		return apperrors.NewFieldError("eps", c.Epsilon, "epsilon must be strictly positive")
	}
	if c.MaxIterations < 1 {
		return apperrors.NewFieldError("max-iter", c.MaxIterations, "max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.Mode == ModeSweep {
		if _, err := c.SizeList(); err != nil {
			return err
		}
	}
	if c.ServerMode && (c.Port == "" || c.MaxServerSize < 1) {
		return apperrors.NewConfigError("server mode needs a port and a positive max size")
	}
	for _, name := range c.AlgoList(availableAlgos) {
		if !slices.Contains(availableAlgos, name) {
			return apperrors.NewConfigError("unrecognized algorithm: '%s'. Valid algorithms are: 'all' or [%s]",
				name, strings.Join(availableAlgos, ", "))
		}
	}
	return nil
}

// applyModeDefaults fills values whose default depends on the mode.
func (c *AppConfig) applyModeDefaults() {
	switch c.Mode {
	case ModePower, ModePageRank, ModeSimRank:
		if c.Size == 0 {
			c.Size = DefaultGraphNodes
		}
		if c.EdgeProbability == 0 {
			c.EdgeProbability = 0.3
			if c.Mode == ModePower {
				c.EdgeProbability = 0.2
			}
		}
	case ModeCalibrate:
		if c.Size == 0 {
			c.Size = DefaultCalibrationSize
		}
	}
}

func newFlagSet(programName string, config *AppConfig, availableAlgos []string) *flag.FlagSet {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	algoHelp := fmt.Sprintf("Strategies to run: 'all' or a comma-separated subset of [%s].", strings.Join(availableAlgos, ", "))

	fs.StringVar(&config.Mode, "mode", DefaultMode, "Run mode: "+strings.Join(Modes, ", ")+".")
	fs.IntVar(&config.Size, "n", 0, "Matrix size, or node count in the graph modes.")
	fs.IntVar(&config.Repetitions, "reps", DefaultRepetitions, "Repetitions per strategy; durations are averaged.")
	fs.StringVar(&config.Algos, "algo", DefaultAlgos, algoHelp)
	fs.Uint64Var(&config.Seed, "seed", DefaultSeed, "Seed for random matrices and graphs.")
	fs.IntVar(&config.Workers, "workers", 0, "Worker goroutines for parallel loops (0 = GOMAXPROCS).")
	fs.IntVar(&config.StrassenThreshold, "strassen-threshold", 0, "Size at or below which Strassen multiplies by definition (0 = calibrated or built-in default).")
	fs.BoolVar(&config.ParallelStrassen, "parallel-strassen", false, "Fork the seven Strassen products at the top recursion level.")
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time.")

	fs.Float64Var(&config.EdgeProbability, "p", 0, "Edge probability of random graphs (default 0.2 for power, 0.3 otherwise).")
	fs.Uint64Var(&config.Power, "steps", DefaultPower, "Exponent of -mode power.")
	fs.Float64Var(&config.Damping, "damping", DefaultDamping, "PageRank damping factor.")
	fs.Float64Var(&config.Epsilon, "eps", DefaultEpsilon, "Convergence threshold of the iterative solvers.")
	fs.IntVar(&config.MaxIterations, "max-iter", DefaultMaxIterations, "Iteration cap of the iterative solvers.")
	fs.StringVar(&config.Sizes, "sizes", DefaultSizes, "Comma-separated matrix sizes for -mode sweep.")
	fs.StringVar(&config.PlotFile, "plot", "", "Write the sweep chart to this PNG/SVG/PDF file.")

	fs.BoolVar(&config.JSONOutput, "json", false, "Output results in JSON format.")
	fs.BoolVar(&config.Quiet, "quiet", false, "Minimal output for scripts.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR).")
	fs.BoolVar(&config.Verbose, "v", false, "Print the matrices of the graph and solver modes.")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error, disabled.")

	fs.BoolVar(&config.ServerMode, "server", false, "Start the HTTP server.")
	fs.StringVar(&config.Port, "port", DefaultPort, "Port to listen on in server mode.")
	fs.IntVar(&config.MaxServerSize, "max-size", DefaultMaxServerSize, "Largest matrix size accepted by the server.")

	fs.StringVar(&config.CalibrationProfile, "calibration-profile", "", "Calibration profile path (default ~/.matcalc_calibration.json).")
	fs.StringVar(&config.ConfigFile, "config", "", "YAML file with default flag values.")
	return fs
}

// ParseConfig parses args into a validated AppConfig. Besides flags it
// accepts the positional form "<size> [repetitions]".
//
// Precedence is flag, then environment, then config file, then default.
// Errors from the flag package (including flag.ErrHelp) are returned as
// is; everything else is a ConfigError.
//
// Parameters:
//   - programName: Used in usage output.
//   - args: The arguments after the program name.
//   - errorWriter: Where the flag package writes usage and errors.
//   - availableAlgos: Strategy names accepted by -algo.
//
// Returns:
//   - AppConfig: The validated configuration.
//   - error: flag.ErrHelp, a flag parse error or a ConfigError.
func ParseConfig(programName string, args []string, errorWriter io.Writer, availableAlgos []string) (AppConfig, error) {
	config := AppConfig{}
	fs := newFlagSet(programName, &config, availableAlgos)
	fs.SetOutput(errorWriter)
	setCustomUsage(fs)

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if err := applyPositional(fs); err != nil {
		return AppConfig{}, fail(fs, errorWriter, err)
	}
	if err := applyEnvOverrides(fs); err != nil {
		return AppConfig{}, fail(fs, errorWriter, err)
	}
	if config.ConfigFile != "" {
		if err := applyFileOverrides(fs, config.ConfigFile); err != nil {
			return AppConfig{}, fail(fs, errorWriter, err)
		}
	}

	config.Mode = strings.ToLower(config.Mode)
	config.Algos = strings.ToLower(config.Algos)
	config.applyModeDefaults()
	if err := config.Validate(availableAlgos); err != nil {
		return AppConfig{}, fail(fs, errorWriter, err)
	}
	return config, nil
}

func fail(fs *flag.FlagSet, w io.Writer, err error) error {
	fmt.Fprintln(w, "Configuration error:", err)
	fs.Usage()
	return err
}

// applyPositional maps "<size> [repetitions]" onto -n and -reps.
func applyPositional(fs *flag.FlagSet) error {
	rest := fs.Args()
	if len(rest) > 2 {
		return apperrors.NewConfigError("unexpected arguments: %s", strings.Join(rest[2:], " "))
	}
	names := []string{"n", "reps"}
	for i, arg := range rest {
		if isFlagSet(fs, names[i]) {
			return apperrors.NewConfigError("positional %s %q conflicts with -%s", names[i], arg, names[i])
		}
		if err := fs.Set(names[i], arg); err != nil {
			return apperrors.NewConfigError("invalid positional %s %q", names[i], arg)
		}
	}
	return nil
}
