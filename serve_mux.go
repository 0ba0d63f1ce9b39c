package bdispatch

import (
	"log"
	"net/http"
)

// ServeMux is an HTTP multiplexer that serves endpoints through buffered sinks and the result writer.
type ServeMux struct {
	logs        Logger
	bufLimit    int
	host        *Host
	mux         *http.ServeMux
	middlewares struct {
		captured bool
		buffered []Middleware
	}
}

// NewServeMux creates a new ServeMux with default settings.
func NewServeMux() *ServeMux {
	logs := NewStdLogger(log.Default())
	return NewServeMuxWith(-1, logs, http.NewServeMux(), NewHost(NewConfig(), logs))
}

// NewServeMuxWith creates a ServeMux with custom settings.
func NewServeMuxWith(bufLimit int, logger Logger, baseMux *http.ServeMux, host *Host) *ServeMux {
	return &ServeMux{
		bufLimit: bufLimit,
		logs:     logger,
		host:     host,
		mux:      baseMux,
	}
}

// Host returns the host endpoints are bound to.
func (m *ServeMux) Host() *Host { return m.host }

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.buffered = append(m.middlewares.buffered, mw...)
}

// Handle binds the service to the host and serves it for the pattern.
func (m *ServeMux) Handle(pattern string, svc Service) {
	m.HandleBare(pattern, svc.Bind(m.host))
}

// HandleBare serves a bare handler for the pattern. Middleware registered via [ServeMux.Use] is applied.
func (m *ServeMux) HandleBare(pattern string, handler BareHandler) {
	m.handle(pattern, ToStd(
		Wrap(handler, m.middlewares.buffered...),
		m.bufLimit,
		m.logs,
	))
}

// HandleStd registers a standard library [http.Handler] for the given pattern. Middleware is applied, errors of
// the middleware are handled like those of any other handler.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler) {
	m.HandleBare(pattern, BareHandlerFunc(func(w Sink, r *http.Request) error {
		handler.ServeHTTP(w, r)
		return nil
	}))
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *ServeMux) handle(pattern string, handler http.Handler) {
	m.middlewares.captured = true
	m.mux.Handle(pattern, handler)
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("bdispatch: cannot call Use() after calling Handle")
	}
}
