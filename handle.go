package bdispatch

import (
	"fmt"
	"net/http"
)

// ResponseWriter implements the http.ResponseWriter but the underlying bytes are buffered. This allows
// the recovery path to reset the writer and formulate a completely new response.
type ResponseWriter interface {
	http.ResponseWriter
	Reset()
	Free()
	FlushBuffer() error
}

// Sink is the output destination the pipeline writes a result to: status, content type, headers and body bytes
// plus the signal that the response is finished.
type Sink interface {
	ResponseWriter

	// FlushError pushes everything buffered so far to the client. Afterwards the response can no longer be reset.
	FlushError() error
	// Flushed reports whether anything was pushed to the client already.
	Flushed() bool

	SetStatus(code int, description string)
	Status() int
	StatusDescription() string
	ContentType() string
	SetContentType(ct string)

	// End finalizes the response. It is safe to call more than once.
	End() error
	IsClosed() bool
}

// BareHandler describes how middleware serves HTTP requests against a buffered sink.
type BareHandler interface {
	ServeBareBHTTP(w Sink, r *http.Request) error
}

// BareHandlerFunc allow casting a function to an implementation of [BareHandler].
type BareHandlerFunc func(Sink, *http.Request) error

// ServeBareBHTTP implements the [BareHandler] interface.
func (f BareHandlerFunc) ServeBareBHTTP(w Sink, r *http.Request) error {
	return f(w, r)
}

// ToStd converts a bare handler into a standard library http.Handler. The implementation
// creates a buffered sink and ends it implicitly after serving the request.
func ToStd(h BareHandler, bufLimit int, logs Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		bresp := NewResponseWriter(resp, bufLimit)
		defer bresp.Free()

		if err := serveBare(h, bresp, req); err != nil {
			logs.LogUnhandledServeError(err)

			// if all fails we don't want the client to end up with a white screen so
			// we render a 500 error with the standard text, unless bytes already left.
			if !bresp.Flushed() {
				bresp.Reset()
				http.Error(resp,
					http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError)

				return
			}
		}

		if err := bresp.End(); err != nil {
			logs.LogImplicitFlushError(err)
		}
	})
}

// serveBare turns a panic in the handler chain into an error.
func serveBare(h BareHandler, w Sink, r *http.Request) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("recovered: %v", e)
		}
	}()

	return h.ServeBareBHTTP(w, r)
}
