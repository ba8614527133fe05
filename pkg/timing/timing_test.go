package timing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

func TestWallTimer_Lifecycle(t *testing.T) {
	timer := NewWallTimer()
	assert.Equal(t, TimerReady, timer.State())

	timer.Start()
	assert.Equal(t, TimerRunning, timer.State())
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, timer.Stop())
	assert.Equal(t, TimerStopped, timer.State())

	d, err := timer.Duration()
	require.NoError(t, err)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 5.0)
}

func TestWallTimer_DurationBeforeStartFails(t *testing.T) {
	timer := NewWallTimer()

	_, err := timer.Duration()
	assert.ErrorIs(t, err, ErrTimerNotStarted)
}

func TestWallTimer_DurationBeforeStopFails(t *testing.T) {
	timer := NewWallTimer()
	timer.Start()

	_, err := timer.Duration()
	assert.ErrorIs(t, err, ErrTimerNotStopped)
}

func TestWallTimer_StopWithoutStartFails(t *testing.T) {
	timer := NewWallTimer()

	assert.ErrorIs(t, timer.Stop(), ErrTimerNotStarted)
}

func TestWallTimer_RestartResets(t *testing.T) {
	timer := NewWallTimer()
	timer.Start()
	require.NoError(t, timer.Stop())

	timer.Start()
	assert.Equal(t, TimerRunning, timer.State())
	require.NoError(t, timer.Stop())

	_, err := timer.Duration()
	assert.NoError(t, err)
}

func TestWallTimer_Reset(t *testing.T) {
	timer := NewWallTimer()
	timer.Start()
	require.NoError(t, timer.Stop())

	timer.Reset()

	assert.Equal(t, TimerReady, timer.State())
	_, err := timer.Duration()
	assert.ErrorIs(t, err, ErrTimerNotStarted)
}

func TestDefaultLimits(t *testing.T) {
	cfg := DefaultLimits()

	assert.Equal(t, 1.0, cfg.Limit(domain.SizeSmall))
	assert.Equal(t, 300.0, cfg.Limit(domain.SizeMedium))
	assert.Equal(t, 900.0, cfg.Limit(domain.SizeLarge))
	assert.Equal(t, 900.0, cfg.Limit(domain.SizeXLarge))
}

func TestNewTimeLimitConfig_Valid(t *testing.T) {
	cfg, err := NewTimeLimitConfig(5.0, 600.0, 1800.0, 3600.0)

	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Small)
	assert.Equal(t, 3600.0, cfg.XLarge)
}

func TestNewTimeLimitConfig_LargeEqualXLargeAllowed(t *testing.T) {
	_, err := NewTimeLimitConfig(1.0, 300.0, 1800.0, 1800.0)
	assert.NoError(t, err)
}

func TestNewTimeLimitConfig_OrderingViolations(t *testing.T) {
	tests := []struct {
		name    string
		limits  [4]float64
		wantMsg string
	}{
		{"small not below medium", [4]float64{500, 300, 900, 900}, "small limit (500) must be less than medium"},
		{"medium not below large", [4]float64{1, 900, 300, 900}, "medium limit (900) must be less than large"},
		{"xlarge below large", [4]float64{1, 300, 900, 600}, "must be less than or equal to xlarge"},
		{"equal small medium", [4]float64{300, 300, 900, 900}, "small limit (300) must be less than medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeLimitConfig(tt.limits[0], tt.limits[1], tt.limits[2], tt.limits[3])
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewTimeLimitConfig_NonPositiveLimits(t *testing.T) {
	_, err := NewTimeLimitConfig(-1.0, 300, 900, 900)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "small limit must be positive")

	_, err = NewTimeLimitConfig(1.0, 0, 900, 900)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "medium limit must be positive")
}

func TestValidate_WithinLimitPasses(t *testing.T) {
	cfg := DefaultLimits()

	assert.NoError(t, cfg.Validate(domain.SizeSmall, 0.5))
	assert.NoError(t, cfg.Validate(domain.SizeMedium, 299.9))
}

func TestValidate_ExactlyAtLimitPasses(t *testing.T) {
	cfg := DefaultLimits()

	assert.NoError(t, cfg.Validate(domain.SizeSmall, 1.0))
	assert.NoError(t, cfg.Validate(domain.SizeLarge, 900.0))
}

func TestValidate_ExceedingLimitFails(t *testing.T) {
	cfg := DefaultLimits()

	err := cfg.Validate(domain.SizeSmall, 1.5)

	var violation *TimingViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, domain.SizeSmall, violation.Size)
	assert.Equal(t, "SMALL test exceeded time limit of 1.0 seconds (took 1.5 seconds)", err.Error())
}

func TestValidate_CustomConfigRespected(t *testing.T) {
	cfg, err := NewTimeLimitConfig(5.0, 600.0, 1800.0, 1800.0)
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate(domain.SizeSmall, 4.0))

	verr := cfg.Validate(domain.SizeSmall, 6.0)
	require.Error(t, verr)
	assert.Contains(t, verr.Error(), "time limit of 5.0 seconds")
}

func TestValidateWithBaseline_WithinBaselinePasses(t *testing.T) {
	cfg := DefaultLimits()
	baseline := 0.1

	assert.NoError(t, cfg.ValidateWithBaseline(domain.SizeSmall, 0.05, &baseline, "test.go::TestFast"))
}

func TestValidateWithBaseline_ExceedingBaselineFails(t *testing.T) {
	cfg := DefaultLimits()
	baseline := 0.1

	err := cfg.ValidateWithBaseline(domain.SizeSmall, 0.15, &baseline, "test.go::TestFast")

	var perf *PerformanceBaselineError
	require.ErrorAs(t, err, &perf)
	assert.Equal(t, domain.SizeSmall, perf.Size)
	assert.Equal(t, domain.TestID("test.go::TestFast"), perf.TestID)
	assert.Equal(t, 0.1, perf.Baseline)
	assert.Equal(t, 1.0, perf.CategoryLimit)
	assert.Equal(t, 0.15, perf.Actual)

	msg := err.Error()
	assert.Contains(t, msg, "Performance Baseline")
	assert.Contains(t, msg, "test.go::TestFast")
	assert.Contains(t, msg, "0.10")
	assert.Contains(t, msg, "1.0")
}

func TestValidateWithBaseline_NoBaselineFallsBack(t *testing.T) {
	cfg := DefaultLimits()

	err := cfg.ValidateWithBaseline(domain.SizeSmall, 1.5, nil, "test.go::TestSlow")

	var violation *TimingViolationError
	assert.ErrorAs(t, err, &violation)

	assert.NoError(t, cfg.ValidateWithBaseline(domain.SizeSmall, 0.5, nil, "test.go::TestOK"))
}

func TestValidateWithBaseline_BaselineAboveCategoryLimitFails(t *testing.T) {
	cfg := DefaultLimits()
	baseline := 2.0

	err := cfg.ValidateWithBaseline(domain.SizeSmall, 0.5, &baseline, "test.go::TestBad")

	var invalid *InvalidBaselineError
	require.ErrorAs(t, err, &invalid)
	assert.True(t, strings.Contains(err.Error(), "baseline") && strings.Contains(err.Error(), "category limit"))
}

func TestValidateWithBaseline_MediumSize(t *testing.T) {
	cfg := DefaultLimits()
	baseline := 5.0

	err := cfg.ValidateWithBaseline(domain.SizeMedium, 10.0, &baseline, "test.go::TestMedium")

	var perf *PerformanceBaselineError
	require.ErrorAs(t, err, &perf)
	assert.Equal(t, 300.0, perf.CategoryLimit)
}
