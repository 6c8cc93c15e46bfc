// Package config resolves and validates the run configuration. Every
// problem it reports is a ConfigurationError: fatal, raised before any
// record is processed, since a bad configuration would invalidate every
// downstream result.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigurationError is a run-level, fatal configuration problem.
type ConfigurationError struct {
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("configuration: %s", e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func errorf(err error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...), Err: err}
}

// Config holds the complete, validated run configuration.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Run     RunConfig     `mapstructure:"run"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// InputConfig names the source tables.
type InputConfig struct {
	// CulvertsPath is the NAACC crossing/culvert CSV.
	CulvertsPath string `mapstructure:"culverts_path"`
	// PrecipitationPath is the precipitation series JSON file.
	PrecipitationPath string `mapstructure:"precipitation_path"`
	// WatershedsPath is the per-point watershed statistics CSV produced
	// by the external delineation run.
	WatershedsPath string `mapstructure:"watersheds_path"`
	// GeometryPath optionally names a corrected-geometry reference table
	// for the snapping join; empty disables geometry correction.
	GeometryPath string `mapstructure:"geometry_path"`
}

// OutputConfig names the result destinations.
type OutputConfig struct {
	Path      string `mapstructure:"path"`
	StatePath string `mapstructure:"state_path"`
}

// RunConfig tunes batch execution.
type RunConfig struct {
	// Workers bounds concurrent per-record computation.
	Workers int `mapstructure:"workers"`
	// Resume continues from an existing state file instead of starting
	// fresh.
	Resume bool `mapstructure:"resume"`
	// RainfallAdjustment scales precipitation depths for future-rainfall
	// scenarios. 1.0 means no adjustment.
	RainfallAdjustment float64 `mapstructure:"rainfall_adjustment"`
}

// HTTPConfig controls the optional metrics endpoint served during a run.
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the run configuration from a file, with environment
// overrides under the CULVERT_TOOLKIT prefix. Unknown keys are explicit
// errors, not silently ignored.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("CULVERT_TOOLKIT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errorf(err, "reading %s", path)
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, errorf(err, "parsing %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.state_path", "./runs/state.json")

	v.SetDefault("run.workers", 4)
	v.SetDefault("run.resume", false)
	v.SetDefault("run.rainfall_adjustment", 1.0)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Input.CulvertsPath == "" {
		return errorf(nil, "input.culverts_path is required")
	}
	if c.Input.PrecipitationPath == "" {
		return errorf(nil, "input.precipitation_path is required")
	}
	if c.Input.WatershedsPath == "" {
		return errorf(nil, "input.watersheds_path is required")
	}
	if c.Output.Path == "" {
		return errorf(nil, "output.path is required")
	}
	if c.Output.StatePath == "" {
		return errorf(nil, "output.state_path is required")
	}
	if c.Run.Workers < 1 {
		return errorf(nil, "run.workers must be at least 1")
	}
	if c.Run.RainfallAdjustment <= 0 {
		return errorf(nil, "run.rainfall_adjustment must be positive")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return errorf(nil, "http.addr is required when http.enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errorf(nil, "logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errorf(nil, "logging.format must be one of: json, text")
	}
	return nil
}
