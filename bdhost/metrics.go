package bdhost

import (
	"net/http"
	"strconv"
	"time"

	"github.com/advdv/bdispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the dispatch pipeline. It implements [bdispatch.Observer].
type Metrics struct {
	registry *prometheus.Registry
	writes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdispatch",
			Name:      "writes_total",
			Help:      "Number of results written, by outcome and native output mode.",
		}, []string{"outcome", "variant"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bdispatch",
			Name:      "request_duration_seconds",
			Help:      "Time spent serving requests, by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(m.writes, m.duration)

	return m
}

// ObserveWrite implements [bdispatch.Observer].
func (m *Metrics) ObserveWrite(outcome bdispatch.Outcome, variant bdispatch.Variant) {
	m.writes.WithLabelValues(outcome.String(), variant.String()).Inc()
}

// Middleware records the duration of every request served by the mux.
func (m *Metrics) Middleware() bdispatch.Middleware {
	return func(next bdispatch.BareHandler) bdispatch.BareHandler {
		return bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
			start := time.Now()
			err := next.ServeBareBHTTP(w, r)

			status := w.Status()
			if err != nil {
				status = bdispatch.StatusOf(err)
			}

			m.duration.WithLabelValues(r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())

			return err
		})
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
