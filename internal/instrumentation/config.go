package instrumentation

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Label values and exporter names.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail = "gmail"
	ServiceTasks = "tasks"

	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationModify = "modify"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config selects exporters and sampling. It is read from the standard
// OTEL_* variables plus a few agent-specific ones, independent of the
// application config file.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string // defaults to the hostname

	// Enabled is INSTRUMENTATION_ENABLED; false disables metrics and tracing.
	Enabled bool

	MetricsExporter string // prometheus, otlp or stdout
	TracingExporter string // otlp, stdout or none

	// OTLPEndpoint is host:port without scheme, e.g. localhost:4318.
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels records rule names and sender domains verbatim instead
	// of bucketing them.
	DetailedLabels bool

	Logger *slog.Logger
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "todoagent"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
	}
}

var (
	metricsExporters = map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	tracingExporters = map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
)

// Validate rejects unknown exporters and incomplete OTLP settings.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !metricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	if c.TracingExporter != "" && !tracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	if (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}
