package analytics

import (
	"fmt"
	"math"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// Counts holds how many tests ran in each size category.
type Counts struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
	XLarge int `json:"xlarge"`
}

// Add increments the count for a size.
func (c *Counts) Add(size domain.TestSize) {
	switch size {
	case domain.SizeSmall:
		c.Small++
	case domain.SizeMedium:
		c.Medium++
	case domain.SizeLarge:
		c.Large++
	case domain.SizeXLarge:
		c.XLarge++
	}
}

// Total is the number of categorized tests.
func (c Counts) Total() int {
	return c.Small + c.Medium + c.Large + c.XLarge
}

// Percentages is the suite composition by size, each value rounded to two
// decimals. All zeros when no tests were counted.
type Percentages struct {
	Small  float64 `json:"small"`
	Medium float64 `json:"medium"`
	Large  float64 `json:"large"`
	XLarge float64 `json:"xlarge"`
}

// CalculatePercentages converts counts to percentages.
func CalculatePercentages(c Counts) Percentages {
	total := c.Total()
	if total == 0 {
		return Percentages{}
	}
	return Percentages{
		Small:  round2(float64(c.Small) * 100.0 / float64(total)),
		Medium: round2(float64(c.Medium) * 100.0 / float64(total)),
		Large:  round2(float64(c.Large) * 100.0 / float64(total)),
		XLarge: round2(float64(c.XLarge) * 100.0 / float64(total)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Range is an acceptable percentage band around a target.
type Range struct {
	Target    float64 `json:"target"`
	Tolerance float64 `json:"tolerance"`
}

func (r Range) Min() float64 {
	return math.Max(0, r.Target-r.Tolerance)
}

func (r Range) Max() float64 {
	return math.Min(100, r.Target+r.Tolerance)
}

// Targets are the suite composition bands. Large and xlarge share one band.
type Targets struct {
	Small       Range `json:"small"`
	Medium      Range `json:"medium"`
	LargeXLarge Range `json:"large_xlarge"`
}

// DefaultTargets returns the standard composition bands: 80% small,
// 15% medium, 5% large/xlarge.
func DefaultTargets() Targets {
	return Targets{
		Small:       Range{Target: 80.0, Tolerance: 5.0},
		Medium:      Range{Target: 15.0, Tolerance: 5.0},
		LargeXLarge: Range{Target: 5.0, Tolerance: 3.0},
	}
}

// ValidateDistribution checks the percentages against the target bands
// and reports the first band that is out of range.
func ValidateDistribution(counts Counts, targets Targets) error {
	p := CalculatePercentages(counts)

	if err := validateRange("Small", p.Small, targets.Small); err != nil {
		return err
	}
	if err := validateRange("Medium", p.Medium, targets.Medium); err != nil {
		return err
	}
	return validateRange("Large/XLarge", p.Large+p.XLarge, targets.LargeXLarge)
}

func validateRange(name string, value float64, band Range) error {
	if value < band.Min() || value > band.Max() {
		return fmt.Errorf("%s test percentage (%.2f%%) outside target range %.2f%%-%.2f%%",
			name, value, band.Min(), band.Max())
	}
	return nil
}

// DistributionViolationError carries the full picture when STRICT
// distribution validation fails.
type DistributionViolationError struct {
	Percentages Percentages
	Targets     Targets
	Cause       error
}

func (e *DistributionViolationError) Error() string {
	return fmt.Sprintf(
		"Test distribution does not meet targets: %v\n"+
			"Current distribution: small %.2f%%, medium %.2f%%, large %.2f%%, xlarge %.2f%%\n"+
			"Targets: small %.0f%%±%.0f%%, medium %.0f%%±%.0f%%, large+xlarge %.0f%%±%.0f%%\n"+
			"Rebalance the suite by adding small tests or promoting oversized tests to the right category.\n"+
			"To bypass this check, set the distribution mode to WARN or OFF.",
		e.Cause,
		e.Percentages.Small, e.Percentages.Medium, e.Percentages.Large, e.Percentages.XLarge,
		e.Targets.Small.Target, e.Targets.Small.Tolerance,
		e.Targets.Medium.Target, e.Targets.Medium.Tolerance,
		e.Targets.LargeXLarge.Target, e.Targets.LargeXLarge.Tolerance)
}

func (e *DistributionViolationError) Unwrap() error { return e.Cause }

// WarningSink receives distribution warnings in WARN mode.
type WarningSink interface {
	Warn(message string)
}

// ValidationService validates suite composition per the configured mode:
// OFF skips, WARN emits one warning per violating call, STRICT fails.
type ValidationService struct {
	Mode    domain.EnforcementMode
	Targets Targets
}

// NewValidationService builds a service with the default targets.
func NewValidationService(mode domain.EnforcementMode) *ValidationService {
	return &ValidationService{Mode: mode, Targets: DefaultTargets()}
}

// Validate checks counts against the targets under the configured mode.
func (s *ValidationService) Validate(counts Counts, sink WarningSink) error {
	if s.Mode == domain.ModeOff {
		return nil
	}

	err := ValidateDistribution(counts, s.Targets)
	if err == nil {
		return nil
	}

	if s.Mode == domain.ModeWarn {
		if sink != nil {
			sink.Warn(fmt.Sprintf("Test distribution does not meet targets: %v", err))
		}
		return nil
	}

	return &DistributionViolationError{
		Percentages: CalculatePercentages(counts),
		Targets:     s.Targets,
		Cause:       err,
	}
}
