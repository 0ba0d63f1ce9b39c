package bdispatch

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/net/http/httpguts"
)

// Header is a single response header.
type Header struct {
	Name  string
	Value string
}

// HeaderList is an ordered list of headers. It parses from text as "Name: value" entries separated by "|", which
// makes it usable as an environment variable type.
type HeaderList []Header

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *HeaderList) UnmarshalText(text []byte) error {
	var out HeaderList

	for _, entry := range strings.Split(string(text), "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			return errors.Newf("header entry %q is not in the form 'Name: value'", entry)
		}

		hdr := Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
		if err := validateHeader(hdr); err != nil {
			return err
		}

		out = append(out, hdr)
	}

	*l = out

	return nil
}

func validateHeader(h Header) error {
	if !httpguts.ValidHeaderFieldName(h.Name) {
		return errors.Newf("invalid header name %q", h.Name)
	}

	if !httpguts.ValidHeaderFieldValue(h.Value) {
		return errors.Newf("invalid value for header %q", h.Name)
	}

	return nil
}

// ErrorHandler takes over response generation for a status code when an error is written for an HTML client.
type ErrorHandler interface {
	ServeError(ctx context.Context, rc *RequestContext, w Sink, dto *ErrorResponse) error
}

// ErrorHandlerFunc allow casting a function to an implementation of [ErrorHandler].
type ErrorHandlerFunc func(context.Context, *RequestContext, Sink, *ErrorResponse) error

// ServeError implements the [ErrorHandler] interface.
func (f ErrorHandlerFunc) ServeError(ctx context.Context, rc *RequestContext, w Sink, dto *ErrorResponse) error {
	return f(ctx, rc, w, dto)
}

// Config is the process-wide configuration of the pipeline. It is built once with [NewConfig] and never mutated
// afterwards, so it can be shared by concurrent requests without locking.
type Config struct {
	globalHeaders      HeaderList
	utf8ContentTypes   []string
	debugMode          bool
	allowPartial       bool
	writeErrorsToResp  bool
	defaultContentType string
	errorHandlers      map[int]ErrorHandler
	batchConcurrency   int
}

// ConfigOption configures the [Config].
type ConfigOption func(*Config)

// WithGlobalHeader adds a header that is applied to every written response, in the order of registration.
func WithGlobalHeader(name, value string) ConfigOption {
	return func(c *Config) {
		c.globalHeaders = append(c.globalHeaders, Header{Name: name, Value: value})
	}
}

// WithGlobalHeaders adds all headers from the list.
func WithGlobalHeaders(l HeaderList) ConfigOption {
	return func(c *Config) {
		c.globalHeaders = append(c.globalHeaders, l...)
	}
}

// WithUTF8ContentTypes sets the content types that get an explicit utf-8 charset suffix.
func WithUTF8ContentTypes(cts ...string) ConfigOption {
	return func(c *Config) {
		c.utf8ContentTypes = cts
	}
}

// WithDebugMode toggles stack traces and sub-errors in error responses.
func WithDebugMode(v bool) ConfigOption {
	return func(c *Config) { c.debugMode = v }
}

// WithPartialResponses toggles honoring of range requests by partial results.
func WithPartialResponses(v bool) ConfigOption {
	return func(c *Config) { c.allowPartial = v }
}

// WithWriteErrorsToResponse toggles converting write errors into error responses. When disabled, write errors
// are returned to the caller.
func WithWriteErrorsToResponse(v bool) ConfigOption {
	return func(c *Config) { c.writeErrorsToResp = v }
}

// WithDefaultContentType sets the content type used when a request does not negotiate one.
func WithDefaultContentType(ct string) ConfigOption {
	return func(c *Config) { c.defaultContentType = ct }
}

// WithErrorHandler registers a custom handler for HTML error responses with the given status code.
func WithErrorHandler(status int, h ErrorHandler) ConfigOption {
	return func(c *Config) { c.errorHandlers[status] = h }
}

// WithBatchConcurrency processes batch elements concurrently with at most n in flight. Each element then gets
// its own copy of the request context. Zero or one means sequential processing.
func WithBatchConcurrency(n int) ConfigOption {
	return func(c *Config) { c.batchConcurrency = n }
}

// NewConfig builds the configuration snapshot. It panics when a global header is invalid.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := &Config{
		utf8ContentTypes:   []string{MimeJSON},
		writeErrorsToResp:  true,
		allowPartial:       true,
		defaultContentType: MimeJSON,
		errorHandlers:      map[int]ErrorHandler{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	for _, h := range cfg.globalHeaders {
		if err := validateHeader(h); err != nil {
			panic("bdispatch: " + err.Error())
		}
	}

	return cfg
}

// GlobalHeaders returns a copy of the global response headers.
func (c *Config) GlobalHeaders() HeaderList { return append(HeaderList(nil), c.globalHeaders...) }

// NeedsUTF8Suffix reports whether ct is configured to carry an explicit utf-8 charset.
func (c *Config) NeedsUTF8Suffix(ct string) bool { return lo.Contains(c.utf8ContentTypes, ct) }

// DebugMode reports whether error responses include debug information.
func (c *Config) DebugMode() bool { return c.debugMode }

// AllowPartialResponses reports whether partial results may answer range requests.
func (c *Config) AllowPartialResponses() bool { return c.allowPartial }

// WriteErrorsToResponse reports whether write errors are converted into error responses.
func (c *Config) WriteErrorsToResponse() bool { return c.writeErrorsToResp }

// DefaultContentType is the content type used when nothing was negotiated.
func (c *Config) DefaultContentType() string { return c.defaultContentType }

// BatchConcurrency is the maximum number of batch elements processed at once.
func (c *Config) BatchConcurrency() int { return c.batchConcurrency }

// ErrorHandler returns the custom error handler for the status, if any.
func (c *Config) ErrorHandler(status int) (ErrorHandler, bool) {
	h, ok := c.errorHandlers[status]
	return h, ok
}

// ErrorHandlerStatuses returns the status codes that have a custom error handler.
func (c *Config) ErrorHandlerStatuses() []int { return lo.Keys(c.errorHandlers) }
