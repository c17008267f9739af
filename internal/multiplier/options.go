package multiplier

import "sync/atomic"

const (
	// DefaultStrassenThreshold is the block size at or below which the
	// Strassen recursion switches to the definition kernel. Below this size
	// the extra additions cost more than the saved multiplication.
	DefaultStrassenThreshold = 64

	// DefaultParallelDepth is how many recursion levels fork their seven
	// products when parallel Strassen is enabled. One level already yields
	// seven concurrent sub-products, each internally data-parallel.
	DefaultParallelDepth = 1

	// MinStrassenThreshold keeps the recursion from descending to 1x1 blocks.
	MinStrassenThreshold = 2
)

var defaultStrassenThreshold atomic.Int32

func init() {
	defaultStrassenThreshold.Store(DefaultStrassenThreshold)
}

// SetDefaultStrassenThreshold sets the threshold used when Options leaves it
// at zero. It is safe for concurrent use and meant to be called at startup,
// for instance from a calibration profile.
func SetDefaultStrassenThreshold(n int) {
	if n < MinStrassenThreshold {
		n = DefaultStrassenThreshold
	}
	defaultStrassenThreshold.Store(int32(n))
}

// GetDefaultStrassenThreshold returns the current default threshold.
func GetDefaultStrassenThreshold() int {
	return int(defaultStrassenThreshold.Load())
}

// Options tunes the Strassen kernel.
type Options struct {
	// Threshold is the base-case block size; zero selects the default.
	Threshold int
	// Parallel forks the seven products of the top recursion levels.
	Parallel bool
	// ParallelDepth bounds how many levels fork; zero selects the default.
	ParallelDepth int
}

func normalizeOptions(opts Options) Options {
	if opts.Threshold == 0 {
		opts.Threshold = GetDefaultStrassenThreshold()
	}
	if opts.Threshold < MinStrassenThreshold {
		opts.Threshold = MinStrassenThreshold
	}
	if opts.ParallelDepth <= 0 {
		opts.ParallelDepth = DefaultParallelDepth
	}
	return opts
}
