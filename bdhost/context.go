package bdhost

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bdispatch"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
)

// requestDep holds request-scoped dependencies available via context.
type requestDep struct {
	logger *zap.Logger
}

func withRequestDep(d *requestDep) bdispatch.Middleware {
	return func(next bdispatch.BareHandler) bdispatch.BareHandler {
		return bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
			ctx := context.WithValue(r.Context(), ctxKeyRequestDep, d)
			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

// withRequestTimeout bounds the context of every request. Zero or less disables the deadline.
func withRequestTimeout(timeout time.Duration) bdispatch.Middleware {
	return func(next bdispatch.BareHandler) bdispatch.BareHandler {
		return bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
			if timeout <= 0 {
				return next.ServeBareBHTTP(w, r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("bdhost: requestDep not found in context; is the middleware configured?")
	}
	return d
}

// Log returns a trace-correlated zap logger from the context.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return max(time.Until(deadline), 0)
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
