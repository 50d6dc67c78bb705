package observe

import "errors"

// Configuration errors returned by New and Config.Validate.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

// Runtime errors.
var (
	// ErrNilObserver indicates a nil Observer was provided.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingModel indicates RequestMeta.Model is empty. Every span
	// and metric is keyed by model, so telemetry without one is
	// unattributable.
	ErrMissingModel = errors.New("observe: model name is required")
)

// ErrEndpointNotConfigured indicates a required exporter endpoint
// environment variable is not set.
var ErrEndpointNotConfigured = errors.New("observe: endpoint not configured")

// Sampling percentage bounds.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Recognized exporter and level names. The empty string selects the
// default.
var (
	ValidTracingExporters = []string{"otlp", "jaeger", "stdout", "none", ""}
	ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields lists log field keys whose values are replaced before
// emission. Prompts carry manuscript text; the rest may carry
// credentials.
var RedactedFields = []string{
	"prompt",
	"input",
	"inputs",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"credential",
}
