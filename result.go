package bdispatch

import (
	"io"
	"maps"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Result is what a handler produced. It is a closed set of variants, each created by one of the constructors in
// this file, and is consumed by [Classify] and the [Writer].
type Result interface{ isResult() }

// BytesResult is a raw byte body. It is always written as application/octet-stream.
type BytesResult []byte

// TextResult is a plain string body.
type TextResult string

// StreamResult copies a reader to the response.
type StreamResult struct{ Reader io.Reader }

// StreamerResult lets a value write itself to the response.
type StreamerResult struct{ Writer io.WriterTo }

// PartialResult is able to answer range requests. When it is not an active partial request, or partial
// responses are disabled, it is written through whatever other capability it has.
type PartialResult struct{ Writer PartialWriter }

// ValueResult is a structured value that needs serialization in the negotiated content type.
type ValueResult struct{ Value any }

func (BytesResult) isResult()    {}
func (TextResult) isResult()     {}
func (StreamResult) isResult()   {}
func (StreamerResult) isResult() {}
func (PartialResult) isResult()  {}
func (ValueResult) isResult()    {}
func (*HTTPResult) isResult()    {}

// PartialWriter describes results that can write a part of themselves, e.g. in response to a Range header.
type PartialWriter interface {
	IsPartialRequest() bool
	WritePartialTo(w Sink) error
}

// HasOptions is implemented by results that carry custom response headers. Keys that contain a "." are
// reserved and never emitted as headers.
type HasOptions interface {
	Options() map[string]string
}

// Bytes returns a raw byte result.
func Bytes(b []byte) Result { return BytesResult(b) }

// Text returns a plain text result.
func Text(s string) Result { return TextResult(s) }

// Stream returns a result that copies r to the response. If r is an io.Closer it is closed after writing.
func Stream(r io.Reader) Result { return StreamResult{Reader: r} }

// Streamer returns a result that writes itself to the response.
func Streamer(w io.WriterTo) Result { return StreamerResult{Writer: w} }

// Partial returns a result that can answer range requests.
func Partial(p PartialWriter) Result { return PartialResult{Writer: p} }

// Value returns a structured result.
func Value(v any) Result { return ValueResult{Value: v} }

// ResultOf converts whatever a handler returned into a [Result]. Nil values map to a nil result, all values
// without a more specific capability become a [ValueResult].
func ResultOf(v any) Result {
	if v == nil || lo.IsNil(v) {
		return nil
	}

	switch v := v.(type) {
	case Result:
		return v
	case []byte:
		return BytesResult(v)
	case string:
		return TextResult(v)
	case PartialWriter:
		return PartialResult{Writer: v}
	case io.WriterTo:
		return StreamerResult{Writer: v}
	case io.Reader:
		return StreamResult{Reader: v}
	default:
		return ValueResult{Value: v}
	}
}

// HTTPResult wraps a result with explicit status, content type and headers.
type HTTPResult struct {
	// Status defaults to 200 when zero.
	Status            int
	StatusDescription string
	// ContentType inherits the negotiated content type when empty.
	ContentType string
	Headers     map[string]string
	Response    Result

	// Err marks the result as an error response.
	Err error
}

// NewHTTPResult wraps the response with the given status. Wrapping another [*HTTPResult] yields a single result
// whose status, content type and headers override the wrapped ones.
func NewHTTPResult(response any, status int) *HTTPResult {
	r := &HTTPResult{Status: status, Response: ResultOf(response), Headers: map[string]string{}}

	return r.flatten()
}

// NewHTTPError returns an error result. The status is taken from err when it carries a [Code].
func NewHTTPError(err error) *HTTPResult {
	return &HTTPResult{Status: StatusOf(err), Err: err, Headers: map[string]string{}}
}

// IsError reports whether the result is an error response.
func (r *HTTPResult) IsError() bool { return r.Err != nil }

// StatusCode returns the status, defaulting to 200.
func (r *HTTPResult) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}

	return r.Status
}

// Description returns the status description or the numeric status when none was given.
func (r *HTTPResult) Description() string {
	if r.StatusDescription != "" {
		return r.StatusDescription
	}

	return strconv.Itoa(r.StatusCode())
}

// Options implements [HasOptions].
func (r *HTTPResult) Options() map[string]string { return r.Headers }

// ErrorResponse returns the error DTO of an error result.
func (r *HTTPResult) ErrorResponse(debug bool) *ErrorResponse {
	if r.Err == nil {
		return nil
	}

	return NewErrorResponse(r.Err, debug)
}

// WriteTo writes a byte, stream or streamer response as-is. Other responses need a serializer and are rejected.
func (r *HTTPResult) WriteTo(w io.Writer) (int64, error) {
	switch inner := r.Response.(type) {
	case nil:
		return 0, nil
	case BytesResult:
		n, err := w.Write(inner)
		return int64(n), err
	case StreamResult:
		return io.Copy(w, inner.Reader)
	case StreamerResult:
		return inner.Writer.WriteTo(w)
	case *HTTPResult:
		return r.flatten().WriteTo(w)
	default:
		return 0, errors.Wrapf(ErrUnsupportedResult, "%T has no native body", inner)
	}
}

// flatten merges nested HTTP results into one. Fields set on the outer result win.
func (r *HTTPResult) flatten() *HTTPResult {
	inner, ok := r.Response.(*HTTPResult)
	if !ok {
		return r
	}

	flat := *r
	flat.Response = nil

	if inner == nil {
		return &flat
	}

	inner = inner.flatten()
	flat.Response = inner.Response

	if flat.Status == 0 {
		flat.Status, flat.StatusDescription = inner.Status, inner.StatusDescription
	}

	if flat.ContentType == "" {
		flat.ContentType = inner.ContentType
	}

	if flat.Err == nil {
		flat.Err = inner.Err
	}

	flat.Headers = make(map[string]string, len(inner.Headers)+len(r.Headers))
	maps.Copy(flat.Headers, inner.Headers)
	maps.Copy(flat.Headers, r.Headers)

	return &flat
}

// Close disposes the wrapped response.
func (r *HTTPResult) Close() error { return dispose(r.Response) }

// valueOf returns the value a serializer should receive for the result.
func valueOf(r Result) any {
	switch r := r.(type) {
	case ValueResult:
		return r.Value
	case PartialResult:
		return r.Writer
	case StreamerResult:
		return r.Writer
	case StreamResult:
		return r.Reader
	default:
		return r
	}
}

// dispose closes the disposable part of a result.
func dispose(r Result) error {
	var v any
	switch r := r.(type) {
	case nil:
		return nil
	case *HTTPResult:
		if r == nil {
			return nil
		}
		return r.Close()
	default:
		v = valueOf(r)
	}

	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// optionsOf returns the custom headers carried by the result, if any.
func optionsOf(r Result) map[string]string {
	if o, ok := r.(HasOptions); ok {
		return o.Options()
	}

	if o, ok := valueOf(r).(HasOptions); ok {
		return o.Options()
	}

	return nil
}
