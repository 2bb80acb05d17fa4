// Package telemetry provides structured logging, metrics, and tracing for
// orgforge. Loggers are zerolog wrappers with component scoping; metrics
// are Prometheus collectors; traces use OpenTelemetry.
package telemetry

import "time"

// Config bundles telemetry configuration for the tool.
type Config struct {
	// ServiceName identifies the service in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the build version.
	ServiceVersion string `yaml:"service_version"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool `yaml:"enabled"`

	// Exporter specifies the trace exporter (stdout, none).
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=stdout none"`

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64 `yaml:"sampling_rate" validate:"omitempty,min=0,max=1"`

	// ExportTimeout bounds trace export on shutdown.
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metrics namespace prefix.
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the standard telemetry configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName: "orgforge",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "orgforge",
		},
	}
}
