// Package bdispatch writes handler results to HTTP responses.
//
// # Overview
//
// A handler produces a [Result]: raw bytes, text, a stream, a value that writes itself, a partial (range) result,
// a structured value or an [*HTTPResult] that wraps any of those with an explicit status, content type and
// headers. The [Writer] decides how to emit it:
//
//   - results with a native output mode (see [Classify]) are written as-is
//   - text is written directly
//   - everything else is handed to the serializer of the negotiated content type
//
// Whatever happens, the sink is ended when [Writer.Write] returns. Failures while writing are converted into a
// structured [ErrorResponse] by [Writer.Recover], which discards what was buffered so far.
//
// A minimal example:
//
//	mux := bdispatch.NewServeMux()
//	mux.Handle("POST /items", bdispatch.NewEndpoint("GetItem",
//	    func(ctx context.Context, rc *bdispatch.RequestContext, req *GetItem) (*Item, error) {
//	        item, err := db.GetItem(req.ID)
//	        if err != nil {
//	            return nil, bdispatch.NewError(bdispatch.CodeNotFound, err)
//	        }
//	        return item, nil
//	    }))
//
// # Buffered Sinks
//
// The mux serves every request through a [ResponseBuffer]. Status, headers and body are held in memory until the
// writer flushes, so an error response can replace anything that was written before.
//
// # Batches
//
// An [Endpoint] that receives a JSON array processes every element as a request of its own and answers with an
// array of responses. Filters and handlers observe the ordinal of the element through
// [RequestContext.AutoBatchIndex]:
//
//	host := bdispatch.NewHost(cfg, logs, bdispatch.WithRequestFilter(
//	    func(ctx context.Context, rc *bdispatch.RequestContext, w bdispatch.Sink, req any) error {
//	        if i, ok := rc.AutoBatchIndex(); ok {
//	            w.Header().Set("X-Batch-Index", strconv.Itoa(i))
//	        }
//	        return nil
//	    }))
//
// # Error Handling
//
// Errors carrying a [Code] (created with [NewError]) determine the status of the error response, all other errors
// result in 500. In debug mode the response includes the stack trace and sub-errors.
package bdispatch
