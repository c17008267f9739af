// Package calibration finds the Strassen threshold that suits the current
// machine and persists it as a JSON profile.
// This file implements calibration profile persistence.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	apperrors "github.com/agbru/matcalc/internal/errors"
)

// CalibrationProfile stores the results of a calibration run.
// It captures both the chosen threshold and the hardware context
// to allow validation of cached results.
type CalibrationProfile struct {
	// Hardware identification
	CPUModel    string   `json:"cpu_model"`
	NumCPU      int      `json:"num_cpu"`
	GOARCH      string   `json:"goarch"`
	GOOS        string   `json:"goos"`
	GoVersion   string   `json:"go_version"`
	CPUFeatures []string `json:"cpu_features"`

	// OptimalStrassenThreshold is the default base-case size.
	OptimalStrassenThreshold int `json:"optimal_strassen_threshold"`

	// Thresholds by matrix size range, for callers that know n up front.
	ThresholdsBySize []SizeThreshold `json:"thresholds_by_size,omitempty"`

	// Calibration metadata
	CalibratedAt    time.Time `json:"calibrated_at"`
	CalibrationSize int       `json:"calibration_size"`
	CalibrationTime string    `json:"calibration_time"`
	Parallel        bool      `json:"parallel"`

	// Version for forward compatibility
	ProfileVersion int `json:"profile_version"`
}

// SizeThreshold stores the Strassen threshold measured for a range of
// matrix sizes.
type SizeThreshold struct {
	// MinN is the minimum size (inclusive) for this range
	MinN int `json:"min_n"`
	// MaxN is the maximum size (inclusive) for this range
	MaxN int `json:"max_n"`
	// StrassenThreshold is the optimal threshold for this range
	StrassenThreshold int `json:"strassen_threshold"`
	// ConfidenceScore indicates the reliability of the threshold (0-1)
	ConfidenceScore float64 `json:"confidence_score"`
	// MeasurementCount is the number of calibration runs merged here
	MeasurementCount int `json:"measurement_count"`
}

const (
	// CurrentProfileVersion is the current version of the profile format.
	// Increment this when making breaking changes to the profile structure.
	CurrentProfileVersion = 1

	// DefaultProfileFileName is the default name for the calibration profile file.
	DefaultProfileFileName = ".matcalc_calibration.json"

	// MaxProfileAge is how long a saved profile is applied before it has to
	// be recalibrated.
	MaxProfileAge = 90 * 24 * time.Hour
)

// DefaultSizeRanges are the matrix size ranges a profile keys thresholds by.
var DefaultSizeRanges = []struct {
	MinN, MaxN int
	Label      string
}{
	{1, 255, "small"},
	{256, 1023, "medium"},
	{1024, 4095, "large"},
	{4096, int(^uint(0) >> 1), "huge"},
}

// SizeRange returns the bounds of the default range containing n.
func SizeRange(n int) (minN, maxN int) {
	for _, r := range DefaultSizeRanges {
		if n >= r.MinN && n <= r.MaxN {
			return r.MinN, r.MaxN
		}
	}
	return DefaultSizeRanges[0].MinN, DefaultSizeRanges[0].MaxN
}

// GetDefaultProfilePath returns the default path for the calibration profile.
// It uses the user's home directory if available, otherwise the current directory.
func GetDefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultProfileFileName
	}
	return filepath.Join(home, DefaultProfileFileName)
}

func resolvePath(path string) string {
	if path == "" {
		return GetDefaultProfilePath()
	}
	return path
}

// NewProfile creates a new CalibrationProfile with current hardware info.
func NewProfile() *CalibrationProfile {
	return &CalibrationProfile{
		CPUModel:       getCPUModel(),
		NumCPU:         runtime.NumCPU(),
		GOARCH:         runtime.GOARCH,
		GOOS:           runtime.GOOS,
		GoVersion:      runtime.Version(),
		CPUFeatures:    CPUFeatures(),
		CalibratedAt:   time.Now(),
		ProfileVersion: CurrentProfileVersion,

		OptimalStrassenThreshold: EstimateOptimalStrassenThreshold(),
	}
}

func getCPUModel() string {
	model := fmt.Sprintf("%s-%d-cores", runtime.GOARCH, runtime.NumCPU())
	if f := CPUFeatures(); len(f) > 0 {
		model += "-" + strings.Join(f, "+")
	}
	return model
}

// LoadProfile loads a calibration profile from the specified path.
//
// Parameters:
//   - path: The profile file; empty means GetDefaultProfilePath.
//
// Returns:
//   - *CalibrationProfile: The decoded profile, or nil on error.
//   - error: A wrapped read or decode error.
func LoadProfile(path string) (*CalibrationProfile, error) {
	data, err := os.ReadFile(resolvePath(path))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read profile")
	}

	var profile CalibrationProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, apperrors.WrapError(err, "failed to parse profile")
	}
	return &profile, nil
}

// SaveProfile saves the calibration profile to the specified path.
// If path is empty, uses the default profile path.
func (p *CalibrationProfile) SaveProfile(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, "failed to marshal profile")
	}
	if err := os.WriteFile(resolvePath(path), data, 0600); err != nil {
		return apperrors.WrapError(err, "failed to write profile")
	}
	return nil
}

// IsValid checks if the profile is valid for the current hardware.
// A profile is considered valid if:
// - The profile version matches
// - The number of CPUs matches
// - The architecture matches
// - The vector features match
// - The threshold is usable
func (p *CalibrationProfile) IsValid() bool {
	if p == nil {
		return false
	}
	if p.ProfileVersion != CurrentProfileVersion {
		return false
	}
	if p.NumCPU != runtime.NumCPU() || p.GOARCH != runtime.GOARCH {
		return false
	}
	if !slices.Equal(p.CPUFeatures, CPUFeatures()) {
		return false
	}
	return p.OptimalStrassenThreshold == ValidateThreshold(p.OptimalStrassenThreshold)
}

// IsStale checks if the profile is older than the given duration.
// This can be used to trigger re-calibration after a certain period.
func (p *CalibrationProfile) IsStale(maxAge time.Duration) bool {
	if p == nil {
		return true
	}
	return time.Since(p.CalibratedAt) > maxAge
}

// String returns a human-readable summary of the profile.
func (p *CalibrationProfile) String() string {
	if p == nil {
		return "<nil profile>"
	}

	rangeInfo := ""
	if len(p.ThresholdsBySize) > 0 {
		rangeInfo = fmt.Sprintf(", Ranges: %d", len(p.ThresholdsBySize))
	}

	return fmt.Sprintf(
		"CalibrationProfile{CPU: %s, Strassen: %d, Size: %d%s, Calibrated: %s}",
		p.CPUModel,
		p.OptimalStrassenThreshold,
		p.CalibrationSize,
		rangeInfo,
		p.CalibratedAt.Format(time.RFC3339),
	)
}

// GetThresholdForSize returns the Strassen threshold for matrices of size
// n. A matching range with enough confidence wins over the default.
func (p *CalibrationProfile) GetThresholdForSize(n int) int {
	if p == nil {
		return 0
	}
	for _, r := range p.ThresholdsBySize {
		if n >= r.MinN && n <= r.MaxN && r.ConfidenceScore >= 0.5 && r.StrassenThreshold > 0 {
			return r.StrassenThreshold
		}
	}
	return p.OptimalStrassenThreshold
}

// AddSizeThreshold adds or updates the threshold of a size range.
// If a range with the same bounds exists, it is updated with the new values
// using a weighted average based on measurement counts.
func (p *CalibrationProfile) AddSizeThreshold(r SizeThreshold) {
	for i, existing := range p.ThresholdsBySize {
		if existing.MinN == r.MinN && existing.MaxN == r.MaxN {
			totalCount := existing.MeasurementCount + r.MeasurementCount
			if totalCount > 0 {
				existingWeight := float64(existing.MeasurementCount) / float64(totalCount)
				newWeight := float64(r.MeasurementCount) / float64(totalCount)

				p.ThresholdsBySize[i].StrassenThreshold = ValidateThreshold(int(
					float64(existing.StrassenThreshold)*existingWeight + float64(r.StrassenThreshold)*newWeight))
				p.ThresholdsBySize[i].ConfidenceScore = existing.ConfidenceScore*existingWeight + r.ConfidenceScore*newWeight
				p.ThresholdsBySize[i].MeasurementCount = totalCount
			}
			return
		}
	}
	p.ThresholdsBySize = append(p.ThresholdsBySize, r)
}

// LoadOrCreateProfile loads an existing profile or creates a new one if not
// found. If the existing profile is invalid for the current hardware, it
// returns a new profile.
//
// Parameters:
//   - path: The profile file; empty means GetDefaultProfilePath.
//
// Returns:
//   - *CalibrationProfile: The loaded profile or a fresh one.
//   - bool: true if the profile was loaded from disk.
func LoadOrCreateProfile(path string) (*CalibrationProfile, bool) {
	profile, err := LoadProfile(path)
	if err != nil || !profile.IsValid() {
		return NewProfile(), false
	}
	return profile, true
}

// ProfileExists checks if a calibration profile exists at the given path.
func ProfileExists(path string) bool {
	_, err := os.Stat(resolvePath(path))
	return err == nil
}
