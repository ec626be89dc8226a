// Package config loads the immutable Options struct that configures one
// analysis run: the engine's own knobs (project root, ignore patterns,
// pass/parallelism limits) plus the ambient logging, telemetry, and output
// settings every run carries regardless of which inspectors are registered.
package config

import (
	"errors"
	"runtime"
	"time"
)

// Default values for Options, applied by LoadConfig via viper.SetDefault.
const (
	DefaultMaxPasses            = 10
	DefaultPerInspectorTimeout  = time.Duration(0) // zero means "none"
	DefaultOutputFormat         = "json"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultTelemetryServiceName = "javagraph"
)

// Options is the immutable configuration for one analysis run, built once
// at startup and never mutated afterward (§9's "Dynamic configuration
// objects" design note: a struct, not a reflection-driven container).
type Options struct {
	// ProjectRoot is the directory walked during Phase 1.
	ProjectRoot string `mapstructure:"project_root"`

	// JarPaths lists additional JAR paths added to the classloader beyond
	// whatever is discovered under ProjectRoot.
	JarPaths []string `mapstructure:"jar_paths"`

	// IgnorePatterns is a list of gitignore-style patterns supplied at
	// construction time.
	IgnorePatterns []string `mapstructure:"ignore_patterns"`

	// MaxPasses bounds the multi-pass convergence loop for Phase 3 and
	// Phase 4 (default 10).
	MaxPasses int `mapstructure:"max_passes"`

	// Parallelism bounds concurrent (inspector, node) invocations within a
	// layer (default: number of cores).
	Parallelism int `mapstructure:"parallelism"`

	// PerInspectorTimeout optionally bounds a single inspector invocation.
	// Zero means "none": invocations run to completion (§5).
	PerInspectorTimeout time.Duration `mapstructure:"per_inspector_timeout"`

	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Output    OutputConfig    `mapstructure:"output"`
}

// LoggingConfig configures the slog-based structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures the OpenTelemetry tracer/meter providers.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

// OutputConfig configures Phase 5's serialization target.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // "json" or "yaml"
}

// Sentinel errors for Options validation.
var (
	ErrMissingProjectRoot   = errors.New("project_root must be set")
	ErrInvalidMaxPasses     = errors.New("max_passes must be positive")
	ErrInvalidParallelism   = errors.New("parallelism must be positive")
	ErrNegativeTimeout      = errors.New("per_inspector_timeout must be non-negative")
	ErrInvalidOutputFormat  = errors.New("output.format must be \"json\" or \"yaml\"")
)

// Validate checks Options invariants and returns the first error found.
func (o *Options) Validate() error {
	if o.ProjectRoot == "" {
		return ErrMissingProjectRoot
	}

	if o.MaxPasses <= 0 {
		return ErrInvalidMaxPasses
	}

	if o.Parallelism <= 0 {
		return ErrInvalidParallelism
	}

	if o.PerInspectorTimeout < 0 {
		return ErrNegativeTimeout
	}

	switch o.Output.Format {
	case "json", "yaml":
	default:
		return ErrInvalidOutputFormat
	}

	return nil
}

// defaultParallelism mirrors the spec's "number-of-cores" default.
func defaultParallelism() int {
	return runtime.NumCPU()
}
