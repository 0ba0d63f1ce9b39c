// Package bdclient implements a client for endpoints served by bdispatch, including auto-batched requests.
package bdclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/advdv/bdispatch"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client sends requests to a single base URL.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	headers   map[string]string
}

// Option configures the client.
type Option func(*Client)

// WithTransport sets the round tripper used for every request.
func WithTransport(t http.RoundTripper) Option {
	return func(c *Client) { c.transport = t }
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(c *Client) { c.headers[name] = value }
}

// New inits the client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL, transport: http.DefaultTransport, headers: map[string]string{}}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewTracedTransport creates a round tripper that starts a client span for every request and propagates the
// trace context to the server.
func NewTracedTransport(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
	)
}

// Response is a decoded response together with its status and headers.
type Response[T any] struct {
	Status int
	Header http.Header
	Value  T
}

// StatusError is returned when the server answered with a non-2xx status.
type StatusError struct {
	Status   int
	Response bdispatch.ErrorResponse
}

func (e *StatusError) Error() string {
	rs := e.Response.ResponseStatus
	if rs.ErrorCode == "" {
		return fmt.Sprintf("bdclient: unexpected status %d", e.Status)
	}

	return fmt.Sprintf("bdclient: %d %s: %s", e.Status, rs.ErrorCode, rs.Message)
}

// Code returns the status as a [bdispatch.Code].
func (e *StatusError) Code() bdispatch.Code { return bdispatch.Code(e.Status) }

// Send posts a single request to path and decodes the response.
func Send[Req, Res any](ctx context.Context, c *Client, path string, req Req) (*Response[Res], error) {
	return send[Res](ctx, c, path, req)
}

// SendAll posts reqs as one JSON array to path, which the server processes as a batch. The responses are
// returned in request order.
func SendAll[Req, Res any](ctx context.Context, c *Client, path string, reqs []Req) (*Response[[]Res], error) {
	if reqs == nil {
		reqs = []Req{}
	}

	return send[[]Res](ctx, c, path, reqs)
}

func send[Res any](ctx context.Context, c *Client, path string, body any) (*Response[Res], error) {
	res := &Response[Res]{Header: http.Header{}}

	var dto bdispatch.ErrorResponse

	rb := requests.New().
		Transport(c.transport).
		BaseURL(c.baseURL).
		Path(path).
		BodyJSON(body).
		Accept(bdispatch.MimeJSON).
		CopyHeaders(res.Header).
		AddValidator(func(resp *http.Response) error {
			res.Status = resp.StatusCode
			return nil
		}).
		AddValidator(requests.ErrorJSON(&dto)).
		ToJSON(&res.Value)

	for name, value := range c.headers {
		rb = rb.Header(name, value)
	}

	if err := rb.Fetch(ctx); err != nil {
		if res.Status >= http.StatusBadRequest {
			return res, &StatusError{Status: res.Status, Response: dto}
		}

		return nil, errors.Wrapf(err, "send %s", path)
	}

	return res, nil
}
