package bdhost

import (
	"time"

	"github.com/advdv/bdispatch"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	healthPath() string
	metricsPath() string
	logLevel() zapcore.Level
	otelExporter() string
	requestTimeout() time.Duration
	htmlErrorPageCodes() string
	bufferLimit() int
	configOptions() []bdispatch.ConfigOption
}

// BaseEnvironment contains the environment variables every host reads. Embed this in your custom
// environment struct.
type BaseEnvironment struct {
	Port           int           `env:"BD_PORT,required"`
	ServiceName    string        `env:"BD_SERVICE_NAME,required"`
	HealthPath     string        `env:"BD_HEALTH_PATH" envDefault:"/health"`
	MetricsPath    string        `env:"BD_METRICS_PATH" envDefault:"/metrics"`
	LogLevel       zapcore.Level `env:"BD_LOG_LEVEL" envDefault:"info"`
	OtelExporter   string        `env:"BD_OTEL_EXPORTER" envDefault:"stdout"`
	RequestTimeout time.Duration `env:"BD_REQUEST_TIMEOUT" envDefault:"30s"`

	// GlobalResponseHeaders are set on every response, e.g. "X-Powered-By: bdispatch|Vary: Accept".
	GlobalResponseHeaders bdispatch.HeaderList `env:"BD_GLOBAL_RESPONSE_HEADERS"`
	UTF8ContentTypes      []string             `env:"BD_UTF8_CONTENT_TYPES" envDefault:"application/json"`
	DefaultContentType    string               `env:"BD_DEFAULT_CONTENT_TYPE" envDefault:"application/json"`
	DebugMode             bool                 `env:"BD_DEBUG_MODE"`
	AllowPartialResponses bool                 `env:"BD_ALLOW_PARTIAL_RESPONSES" envDefault:"true"`
	WriteErrorsToResponse bool                 `env:"BD_WRITE_ERRORS_TO_RESPONSE" envDefault:"true"`
	// HTMLErrorPageCodes selects the statuses that get a rendered HTML error page, e.g. "404,500-599".
	HTMLErrorPageCodes string `env:"BD_HTML_ERROR_PAGE_CODES"`
	BufferLimit        int    `env:"BD_BUFFER_LIMIT" envDefault:"-1"`
	BatchConcurrency   int    `env:"BD_BATCH_CONCURRENCY" envDefault:"0"`
}

func (e BaseEnvironment) port() int {
	return e.Port
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) healthPath() string {
	return e.HealthPath
}

func (e BaseEnvironment) metricsPath() string {
	return e.MetricsPath
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) requestTimeout() time.Duration {
	return e.RequestTimeout
}

func (e BaseEnvironment) htmlErrorPageCodes() string {
	return e.HTMLErrorPageCodes
}

func (e BaseEnvironment) bufferLimit() int {
	return e.BufferLimit
}

func (e BaseEnvironment) configOptions() []bdispatch.ConfigOption {
	return []bdispatch.ConfigOption{
		bdispatch.WithGlobalHeaders(e.GlobalResponseHeaders),
		bdispatch.WithUTF8ContentTypes(e.UTF8ContentTypes...),
		bdispatch.WithDefaultContentType(e.DefaultContentType),
		bdispatch.WithDebugMode(e.DebugMode),
		bdispatch.WithPartialResponses(e.AllowPartialResponses),
		bdispatch.WithWriteErrorsToResponse(e.WriteErrorsToResponse),
		bdispatch.WithBatchConcurrency(e.BatchConcurrency),
	}
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		return e, nil
	}
}
