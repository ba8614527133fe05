package timing

import (
	"fmt"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// Default category limits in seconds.
const (
	DefaultSmallLimit  = 1.0
	DefaultMediumLimit = 300.0
	DefaultLargeLimit  = 900.0
	DefaultXLargeLimit = 900.0
)

// TimingViolationError reports a test that ran past its category limit.
// Timing violations are objective facts about the run and are never gated
// by the enforcement mode.
type TimingViolationError struct {
	Size     domain.TestSize
	Limit    float64
	Duration float64
}

func (e *TimingViolationError) Error() string {
	return fmt.Sprintf("%s test exceeded time limit of %.1f seconds (took %.1f seconds)",
		e.Size.Name(), e.Limit, e.Duration)
}

// PerformanceBaselineError reports a test that ran past its custom
// baseline while still within its category limit. Distinct from
// TimingViolationError so callers can tell a tightened expectation apart
// from a category breach.
type PerformanceBaselineError struct {
	Size          domain.TestSize
	TestID        domain.TestID
	Baseline      float64
	CategoryLimit float64
	Actual        float64
}

func (e *PerformanceBaselineError) Error() string {
	return fmt.Sprintf(
		"Performance Baseline exceeded: %s took %.2f seconds, baseline is %.2f seconds "+
			"(%s category limit: %.1f seconds)",
		e.TestID, e.Actual, e.Baseline, e.Size.Name(), e.CategoryLimit)
}

// InvalidBaselineError is a configuration mistake: the declared baseline
// is looser than the category limit it is supposed to tighten.
type InvalidBaselineError struct {
	TestID        domain.TestID
	Baseline      float64
	CategoryLimit float64
}

func (e *InvalidBaselineError) Error() string {
	return fmt.Sprintf("baseline %.2f exceeds category limit %.2f for %s",
		e.Baseline, e.CategoryLimit, e.TestID)
}

// TimeLimitConfig holds the per-category limits in seconds. Construct it
// with NewTimeLimitConfig so the ordering invariant holds; larger
// categories must tolerate longer runtimes, with large and xlarge allowed
// to share a ceiling.
type TimeLimitConfig struct {
	Small  float64
	Medium float64
	Large  float64
	XLarge float64
}

// DefaultLimits returns the standard limit set.
func DefaultLimits() TimeLimitConfig {
	return TimeLimitConfig{
		Small:  DefaultSmallLimit,
		Medium: DefaultMediumLimit,
		Large:  DefaultLargeLimit,
		XLarge: DefaultXLargeLimit,
	}
}

// NewTimeLimitConfig validates and returns a limit set. Every limit must
// be positive and the ordering small < medium < large <= xlarge must hold.
func NewTimeLimitConfig(small, medium, large, xlarge float64) (TimeLimitConfig, error) {
	cfg := TimeLimitConfig{Small: small, Medium: medium, Large: large, XLarge: xlarge}

	for _, l := range []struct {
		name  string
		value float64
	}{
		{"small", small}, {"medium", medium}, {"large", large}, {"xlarge", xlarge},
	} {
		if l.value <= 0 {
			return TimeLimitConfig{}, fmt.Errorf("%s limit must be positive, got %v", l.name, l.value)
		}
	}

	if small >= medium {
		return TimeLimitConfig{}, fmt.Errorf("small limit (%v) must be less than medium limit (%v)", small, medium)
	}
	if medium >= large {
		return TimeLimitConfig{}, fmt.Errorf("medium limit (%v) must be less than large limit (%v)", medium, large)
	}
	if large > xlarge {
		return TimeLimitConfig{}, fmt.Errorf("large limit (%v) must be less than or equal to xlarge limit (%v)", large, xlarge)
	}
	return cfg, nil
}

// Limit returns the limit for a size.
func (c TimeLimitConfig) Limit(size domain.TestSize) float64 {
	switch size {
	case domain.SizeSmall:
		return c.Small
	case domain.SizeMedium:
		return c.Medium
	case domain.SizeLarge:
		return c.Large
	case domain.SizeXLarge:
		return c.XLarge
	}
	return 0
}

// Validate checks duration against the size's limit. Running exactly at
// the limit passes; only strictly exceeding it fails.
func (c TimeLimitConfig) Validate(size domain.TestSize, duration float64) error {
	limit := c.Limit(size)
	if duration > limit {
		return &TimingViolationError{Size: size, Limit: limit, Duration: duration}
	}
	return nil
}

// ValidateWithBaseline checks duration against a per-test baseline when
// one is supplied, falling back to the category limit otherwise. A
// baseline looser than the category limit is rejected eagerly as a
// configuration error.
func (c TimeLimitConfig) ValidateWithBaseline(size domain.TestSize, duration float64, baseline *float64, testID domain.TestID) error {
	if baseline == nil {
		return c.Validate(size, duration)
	}

	categoryLimit := c.Limit(size)
	if *baseline > categoryLimit {
		return &InvalidBaselineError{TestID: testID, Baseline: *baseline, CategoryLimit: categoryLimit}
	}

	if duration > *baseline {
		return &PerformanceBaselineError{
			Size:          size,
			TestID:        testID,
			Baseline:      *baseline,
			CategoryLimit: categoryLimit,
			Actual:        duration,
		}
	}
	return nil
}
