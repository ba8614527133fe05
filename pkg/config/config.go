// Package config loads harness configuration from the environment with
// an optional YAML overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hermetic-ci/hermetic/pkg/analytics"
	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/timing"
)

// Config is the full harness configuration.
type Config struct {
	FilesystemMode   domain.EnforcementMode `yaml:"filesystem_mode"`
	NetworkMode      domain.EnforcementMode `yaml:"network_mode"`
	ProcessMode      domain.EnforcementMode `yaml:"process_mode"`
	DistributionMode domain.EnforcementMode `yaml:"distribution_mode"`

	// AllowedPaths are always permitted for small tests, in addition to
	// the test's own temp directory.
	AllowedPaths []string `yaml:"allowed_paths"`
	// AllowedHosts are permitted network targets for small tests. Empty
	// by default.
	AllowedHosts []string `yaml:"allowed_hosts"`

	// ObserveMode disables all enforcement and only records observations
	// for suggestion analytics.
	ObserveMode bool `yaml:"observe_mode"`

	Limits   timing.TimeLimitConfig `yaml:"limits"`
	Triggers []analytics.Trigger    `yaml:"triggers"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		FilesystemMode:   getMode("HERMETIC_FILESYSTEM_MODE", domain.ModeStrict),
		NetworkMode:      getMode("HERMETIC_NETWORK_MODE", domain.ModeStrict),
		ProcessMode:      getMode("HERMETIC_PROCESS_MODE", domain.ModeStrict),
		DistributionMode: getMode("HERMETIC_DISTRIBUTION_MODE", domain.ModeWarn),
		AllowedPaths:     getEnvList("HERMETIC_ALLOWED_PATHS"),
		AllowedHosts:     getEnvList("HERMETIC_ALLOWED_HOSTS"),
		ObserveMode:      getEnvBool("HERMETIC_OBSERVE_MODE", false),
		Limits: timing.TimeLimitConfig{
			Small:  getEnvFloat("HERMETIC_SMALL_LIMIT", timing.DefaultSmallLimit),
			Medium: getEnvFloat("HERMETIC_MEDIUM_LIMIT", timing.DefaultMediumLimit),
			Large:  getEnvFloat("HERMETIC_LARGE_LIMIT", timing.DefaultLargeLimit),
			XLarge: getEnvFloat("HERMETIC_XLARGE_LIMIT", timing.DefaultXLargeLimit),
		},
		RedisAddr:     getEnv("HERMETIC_REDIS_ADDR", ""),
		RedisDB:       GetEnvInt("HERMETIC_REDIS_DB", 0),
		RedisPassword: getEnv("HERMETIC_REDIS_PASSWORD", ""),
		LogLevel:      getEnv("HERMETIC_LOG_LEVEL", "INFO"),
	}
}

// LoadFile loads configuration from the environment, then overlays the
// YAML file at path on top of it.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	for name, mode := range map[string]domain.EnforcementMode{
		"filesystem_mode":   c.FilesystemMode,
		"network_mode":      c.NetworkMode,
		"process_mode":      c.ProcessMode,
		"distribution_mode": c.DistributionMode,
	} {
		switch mode {
		case domain.ModeOff, domain.ModeWarn, domain.ModeStrict:
		default:
			return fmt.Errorf("invalid %s: %q", name, mode)
		}
	}

	_, err := timing.NewTimeLimitConfig(c.Limits.Small, c.Limits.Medium, c.Limits.Large, c.Limits.XLarge)
	return err
}

// EffectiveModes returns the enforcement modes with observe mode applied:
// observing forces everything to OFF while observations still flow to the
// suggestion collector.
func (c *Config) EffectiveModes() (fs, net, proc domain.EnforcementMode) {
	if c.ObserveMode {
		return domain.ModeOff, domain.ModeOff, domain.ModeOff
	}
	return c.FilesystemMode, c.NetworkMode, c.ProcessMode
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getMode(key string, fallback domain.EnforcementMode) domain.EnforcementMode {
	if value, ok := os.LookupEnv(key); ok {
		switch domain.EnforcementMode(strings.ToUpper(strings.TrimSpace(value))) {
		case domain.ModeOff:
			return domain.ModeOff
		case domain.ModeWarn:
			return domain.ModeWarn
		case domain.ModeStrict:
			return domain.ModeStrict
		}
	}
	return fallback
}
