// Package config loads the immutable GlobalConfig snapshot that the rest
// of flowcore reads at bootstrap: app identity, the sliding-window
// dimensions (sample count / interval), and the optional metric-log sink.
// Loading follows the teacher's yaml.v2 + environment-override layering
// (see Resinat-Resin's internal/config/env.go for the override pattern):
// YAML provides defaults, environment variables win.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// StatisticConfig controls the two ArrayMetric dimensions every
// StatisticNode carries (see SPEC_FULL.md §2, StatisticNode).
type StatisticConfig struct {
	SampleCountSecond uint32 `yaml:"sampleCountSecond"`
	IntervalMsSecond  uint32 `yaml:"intervalMsSecond"`
	SampleCountMinute uint32 `yaml:"sampleCountMinute"`
	IntervalMsMinute  uint32 `yaml:"intervalMsMinute"`
	// StaleNodeAfterSec is how long a ClusterNode may carry zero traffic
	// and zero in-flight requests before the registry's GC sweep reclaims
	// it (SPEC_FULL.md §4.13). Zero disables the sweep.
	StaleNodeAfterSec uint32 `yaml:"staleNodeAfterSec"`
}

// MetricLogConfig controls the optional CSV metric-log writer.
type MetricLogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// GlobalConfig is the validated, immutable snapshot produced by Load.
type GlobalConfig struct {
	AppName   string          `yaml:"appName"`
	LogDir    string          `yaml:"logDir"`
	Statistic StatisticConfig `yaml:"statistic"`
	MetricLog MetricLogConfig `yaml:"metricLog"`
}

// Default mirrors the upstream defaults: 1s window split into 2 buckets of
// 500ms, 60s window split into 60 buckets of 1s.
func Default() GlobalConfig {
	return GlobalConfig{
		AppName: "flowcore-app",
		LogDir:  "logs",
		Statistic: StatisticConfig{
			SampleCountSecond: 2,
			IntervalMsSecond:  1000,
			SampleCountMinute: 60,
			IntervalMsMinute:  60000,
			StaleNodeAfterSec: 600,
		},
	}
}

// Load reads YAML from path (if non-empty and present), falls back to
// Default() for missing fields, then applies FLOWCORE_* environment
// overrides, matching the teacher's env-wins-over-file convention.
func Load(path string) (GlobalConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return GlobalConfig{}, errors.Wrapf(err, "config: reading %s", path)
		}
		if err == nil {
			if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
				return GlobalConfig{}, errors.Wrapf(uerr, "config: parsing %s", path)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *GlobalConfig) {
	if v := os.Getenv("FLOWCORE_APP_NAME"); v != "" {
		cfg.AppName = v
	}
	if v := os.Getenv("FLOWCORE_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("FLOWCORE_METRIC_LOG_ENABLED"); v == "true" {
		cfg.MetricLog.Enabled = true
	}
}

func validate(cfg GlobalConfig) error {
	if cfg.AppName == "" {
		return errors.New("config: appName must not be empty")
	}
	if cfg.Statistic.SampleCountSecond == 0 || cfg.Statistic.IntervalMsSecond == 0 {
		return errors.New("config: statistic.sampleCountSecond/intervalMsSecond must be positive")
	}
	if cfg.Statistic.IntervalMsSecond%cfg.Statistic.SampleCountSecond != 0 {
		return errors.New("config: intervalMsSecond must be an exact multiple of sampleCountSecond")
	}
	return nil
}
