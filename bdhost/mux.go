package bdhost

import (
	"net/http"

	"github.com/advdv/bdispatch"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Mux is an alias for bdispatch.ServeMux.
type Mux = bdispatch.ServeMux

// NewConfig builds the dispatch configuration from the environment, including the HTML error pages.
func NewConfig(env Environment) (*bdispatch.Config, error) {
	pages, err := NewErrorPages(env.serviceName(), env.htmlErrorPageCodes())
	if err != nil {
		return nil, err
	}

	return bdispatch.NewConfig(append(env.configOptions(), pages.ConfigOptions()...)...), nil
}

// HostParams holds the dependencies for creating the dispatch host.
type HostParams struct {
	fx.In

	Config     *bdispatch.Config
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Metrics    *Metrics
}

// NewHost creates the dispatch host. Writes are traced with the injected provider and observed by the metrics.
func NewHost(params HostParams, opts ...bdispatch.HostOption) *bdispatch.Host {
	return bdispatch.NewHost(params.Config, NewDispatchLogger(params.Logger), append([]bdispatch.HostOption{
		bdispatch.WithWriterOptions(
			bdispatch.WithTracerProvider(params.TracerProv),
			bdispatch.WithObserver(params.Metrics),
		),
	}, opts...)...)
}

// NewMux creates a new Mux that serves endpoints with the given host.
func NewMux(env Environment, logger *zap.Logger, host *bdispatch.Host) *Mux {
	return bdispatch.NewServeMuxWith(
		env.bufferLimit(),
		NewDispatchLogger(logger),
		http.NewServeMux(),
		host,
	)
}
