package bdhost

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/advdv/bdispatch"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxReadHeaderTimeout caps the time allowed for reading request headers.
const maxReadHeaderTimeout = 5 * time.Second

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler func(http.ResponseWriter, *http.Request)
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	Mux        *Mux
	Logger     *zap.Logger
	Metrics    *Metrics
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates an HTTP server with all middleware, the health and the metrics endpoint configured.
func NewServer(params ServerParams, cfg ServerConfig) *http.Server {
	params.Mux.Use(withRequestDep(&requestDep{logger: params.Logger}))
	params.Mux.Use(params.Metrics.Middleware())
	params.Mux.Use(withRequestTimeout(params.Env.requestTimeout()))

	healthPath, metricsPath := params.Env.healthPath(), params.Env.metricsPath()

	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}

	params.Mux.HandleBare(healthPath, bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
		healthHandler(w, r)
		return nil
	}))

	if metricsPath != "" {
		params.Mux.HandleStd(metricsPath, params.Metrics.Handler())
	}

	// health checks and scrapes are not traced
	handler := withTracing(params.TracerProv, params.Propagator, params.Env.serviceName(),
		healthPath, metricsPath)(params.Mux)

	timeout := params.Env.requestTimeout()

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.port()),
		Handler:           handler,
		ReadHeaderTimeout: min(timeout, maxReadHeaderTimeout),
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       timeout,
	}
}

// startServerHook registers lifecycle hooks for the HTTP server.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
