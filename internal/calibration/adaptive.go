package calibration

// This file implements adaptive threshold generation based on hardware characteristics.

import (
	"runtime"
	"slices"

	"golang.org/x/sys/cpu"

	"github.com/agbru/matcalc/internal/multiplier"
)

// MaxStrassenThreshold bounds the thresholds a profile may carry.
const MaxStrassenThreshold = 4096

// CPUFeatures lists the vector extensions that change the speed of the
// definition kernel relative to the Strassen additions. The order is fixed
// so profiles can compare the lists directly.
func CPUFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasSVE, "sve")
	}
	return features
}

// hasWideVectors reports whether the CPU has 256-bit or wider SIMD (or
// NEON on arm64), which makes small dense blocks cheap.
func hasWideVectors() bool {
	return cpu.X86.HasAVX2 || cpu.X86.HasAVX512F || cpu.ARM64.HasASIMD
}

// GenerateThresholdCandidates returns the Strassen thresholds worth timing
// for n x n operands: powers of two from 16 up to n, plus n itself, which
// means no recursion at all.
//
// Few cores make the recursion's extra additions relatively dearer, so
// single and dual core machines skip the smallest candidates.
//
// Parameters:
//   - n: The operand size being calibrated.
//
// Returns:
//   - []int: Ascending, duplicate-free thresholds, capped at
//     MaxStrassenThreshold.
func GenerateThresholdCandidates(n int) []int {
	start := 16
	if runtime.NumCPU() <= 2 {
		start = 32
	}
	var candidates []int
	for t := start; t < n && t <= MaxStrassenThreshold; t *= 2 {
		candidates = append(candidates, t)
	}
	if n >= multiplier.MinStrassenThreshold {
		candidates = append(candidates, min(n, MaxStrassenThreshold))
	}
	return slices.Compact(candidates)
}

// GenerateQuickThresholdCandidates returns a smaller set centred on the
// estimate, for short calibrations.
func GenerateQuickThresholdCandidates(n int) []int {
	est := EstimateOptimalStrassenThreshold()
	var candidates []int
	for _, t := range []int{est / 2, est, est * 2} {
		if t >= multiplier.MinStrassenThreshold && t <= n {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return GenerateThresholdCandidates(n)
	}
	return candidates
}

// EstimateOptimalStrassenThreshold provides a heuristic estimate of the
// optimal Strassen threshold without running benchmarks.
func EstimateOptimalStrassenThreshold() int {
	t := multiplier.DefaultStrassenThreshold
	if hasWideVectors() {
		t *= 2
	}
	if runtime.NumCPU() < 4 {
		t *= 2
	}
	return ValidateThreshold(t)
}

// ValidateThreshold clamps a threshold to [MinStrassenThreshold,
// MaxStrassenThreshold].
func ValidateThreshold(t int) int {
	return min(max(t, multiplier.MinStrassenThreshold), MaxStrassenThreshold)
}
