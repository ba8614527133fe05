package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, domain.ModeStrict, cfg.FilesystemMode)
	assert.Equal(t, domain.ModeStrict, cfg.NetworkMode)
	assert.Equal(t, domain.ModeStrict, cfg.ProcessMode)
	assert.Equal(t, domain.ModeWarn, cfg.DistributionMode)
	assert.False(t, cfg.ObserveMode)
	assert.Equal(t, 1.0, cfg.Limits.Small)
	assert.Equal(t, 300.0, cfg.Limits.Medium)
	assert.Equal(t, 900.0, cfg.Limits.Large)
	assert.Equal(t, 900.0, cfg.Limits.XLarge)
	assert.Empty(t, cfg.AllowedHosts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HERMETIC_FILESYSTEM_MODE", "warn")
	t.Setenv("HERMETIC_OBSERVE_MODE", "true")
	t.Setenv("HERMETIC_SMALL_LIMIT", "5.0")
	t.Setenv("HERMETIC_ALLOWED_PATHS", "/var/tmp, /opt/cache")

	cfg := Load()

	assert.Equal(t, domain.ModeWarn, cfg.FilesystemMode)
	assert.True(t, cfg.ObserveMode)
	assert.Equal(t, 5.0, cfg.Limits.Small)
	assert.Equal(t, []string{"/var/tmp", "/opt/cache"}, cfg.AllowedPaths)
}

func TestLoad_InvalidModeFallsBack(t *testing.T) {
	t.Setenv("HERMETIC_NETWORK_MODE", "banana")

	cfg := Load()

	assert.Equal(t, domain.ModeStrict, cfg.NetworkMode)
}

func TestEffectiveModes_ObserveForcesOff(t *testing.T) {
	cfg := Load()
	cfg.ObserveMode = true

	fs, net, proc := cfg.EffectiveModes()

	assert.Equal(t, domain.ModeOff, fs)
	assert.Equal(t, domain.ModeOff, net)
	assert.Equal(t, domain.ModeOff, proc)
}

func TestLoadFile_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermetic.yaml")
	data := []byte(`
filesystem_mode: WARN
allowed_hosts:
  - localhost
limits:
  small: 2.0
  medium: 400.0
  large: 900.0
  xlarge: 900.0
triggers:
  - condition: 'duration > 10.0'
    suggest: medium
    reason: slow for its size
    enabled: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, domain.ModeWarn, cfg.FilesystemMode)
	assert.Equal(t, domain.ModeStrict, cfg.NetworkMode)
	assert.Equal(t, []string{"localhost"}, cfg.AllowedHosts)
	assert.Equal(t, 2.0, cfg.Limits.Small)
	require.Len(t, cfg.Triggers, 1)
	assert.Equal(t, domain.SizeMedium, cfg.Triggers[0].Suggest)
}

func TestLoadFile_InvalidLimitOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermetic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  small: 500.0\n  medium: 300.0\n  large: 900.0\n  xlarge: 900.0\n"), 0o644))

	_, err := LoadFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be less than medium")
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadMode(t *testing.T) {
	cfg := Load()
	cfg.ProcessMode = "LOUD"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "process_mode")
}
