package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config configures metrics, tracing and audit logging.
type Config struct {
	// ServiceName is reported as service.name (default: inboxreader).
	ServiceName string

	// ServiceVersion is reported as service.version.
	ServiceVersion string

	// ServiceInstanceID is reported as service.instance.id. Falls back to the
	// hostname when empty.
	ServiceInstanceID string

	// Enabled turns instrumentation on. A disabled provider hands out no-op
	// recorders.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is the collector host:port, without scheme.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Local development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio sampler argument.
	TraceSamplingRate float64

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig configures the tool audit log.
type AuditLoggingConfig struct {
	Enabled bool
}

// DefaultConfig reads the OTEL_* and related environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:       getEnvOrDefault("OTEL_SERVICE_NAME", "inboxreader"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   getEnvOrDefault("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		AuditLogging: AuditLoggingConfig{
			Enabled: getEnvBoolOrDefault("AUDIT_LOGGING_ENABLED", true),
		},
	}
}

// Validate checks exporter names and the sampling rate.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Backend round trips.
	OperationFolder = "folder"
	OperationQuery  = "query"
	OperationFetch  = "fetch"

	// Authentication rejection reasons.
	ReasonUnauthorized      = "unauthorized"
	ReasonMissingCredential = "missing_backend_credential"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	DefaultMetricInterval = 10 * time.Second
)
