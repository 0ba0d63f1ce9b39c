// Package example implements example middleware and filters in an outside package.
package example

import (
	"context"
	"net/http"
	"strconv"

	"github.com/advdv/bdispatch"
	"go.uber.org/zap"
)

// ctxKey type scopes middleware values.
type ctxKey string

const (
	// RequestFilterHeader is set by [AutoBatchIndexRequestFilter] to the ordinal of the batch element.
	RequestFilterHeader = "GlobalRequestFilterAutoBatchIndex"
	// ResponseFilterMetaKey is set by [AutoBatchIndexResponseFilter] on the meta of every batch response.
	ResponseFilterMetaKey = "GlobalResponseFilterAutoBatchIndex"
)

// Middleware provides an example for middleware that adds a logger to the request context.
func Middleware(logs *zap.Logger) bdispatch.Middleware {
	return func(n bdispatch.BareHandler) bdispatch.BareHandler {
		return bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
			logs := logs.With(zap.String("method", r.Method))
			r = r.WithContext(context.WithValue(r.Context(), ctxKey("zap"), logs))

			return n.ServeBareBHTTP(w, r)
		})
	}
}

// Log returns the logger added by [Middleware].
func Log(ctx context.Context) *zap.Logger {
	v, _ := ctx.Value(ctxKey("zap")).(*zap.Logger)

	return v
}

// AutoBatchIndexRequestFilter exposes the ordinal of batch elements as a response header. Since the sink is
// shared by all elements the header ends up with the ordinal of the last element.
func AutoBatchIndexRequestFilter(
	_ context.Context, rc *bdispatch.RequestContext, w bdispatch.Sink, _ any,
) error {
	if i, ok := rc.AutoBatchIndex(); ok {
		w.Header().Set(RequestFilterHeader, strconv.Itoa(i))
	}

	return nil
}

// AutoBatchIndexResponseFilter records the ordinal of batch elements on responses that carry meta data.
func AutoBatchIndexResponseFilter(
	_ context.Context, rc *bdispatch.RequestContext, _ bdispatch.Sink, res any,
) error {
	if i, ok := rc.AutoBatchIndex(); ok {
		bdispatch.SetMetaValue(res, ResponseFilterMetaKey, strconv.Itoa(i))
	}

	return nil
}
