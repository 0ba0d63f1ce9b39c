package bdispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// Service can be bound to a [Host] to serve requests.
type Service interface {
	Bind(h *Host) BareHandler
}

// HandlerFunc handles a single request DTO.
type HandlerFunc[Req, Res any] func(ctx context.Context, rc *RequestContext, req Req) (Res, error)

// BatchHandlerFunc replaces the default processing of batched requests.
type BatchHandlerFunc[Req, Res any] func(ctx context.Context, rc *RequestContext, b *Batch[Req, Res]) (any, error)

// Batch gives a custom batch handler access to the decoded elements.
type Batch[Req, Res any] struct {
	Requests []Req

	each func(ctx context.Context, rc *RequestContext, reqs []Req, fn HandlerFunc[Req, Res]) ([]Res, error)
}

// Each runs fn for every element with the filters applied and the batch ordinal recorded, as if every element
// was a request of its own.
func (b *Batch[Req, Res]) Each(ctx context.Context, rc *RequestContext, fn HandlerFunc[Req, Res]) ([]Res, error) {
	return b.each(ctx, rc, b.Requests, fn)
}

// Endpoint decodes request DTOs, runs filters and the handler and writes the response. A JSON array body is
// treated as a batch: every element is processed as a request of its own and the responses are written as an
// array.
type Endpoint[Req, Res any] struct {
	name    string
	handle  HandlerFunc[Req, Res]
	batch   BatchHandlerFunc[Req, Res]
	filters Filters
}

// EndpointOption configures an [Endpoint].
type EndpointOption[Req, Res any] func(*Endpoint[Req, Res])

// WithBatchHandler sets a custom handler for batched requests.
func WithBatchHandler[Req, Res any](fn BatchHandlerFunc[Req, Res]) EndpointOption[Req, Res] {
	return func(e *Endpoint[Req, Res]) { e.batch = fn }
}

// WithFilters adds filters that only apply to this endpoint. They run after the global filters.
func WithFilters[Req, Res any](f Filters) EndpointOption[Req, Res] {
	return func(e *Endpoint[Req, Res]) {
		e.filters.Request = append(e.filters.Request, f.Request...)
		e.filters.Response = append(e.filters.Response, f.Response...)
	}
}

// NewEndpoint inits an endpoint, the name is used as the operation name.
func NewEndpoint[Req, Res any](name string, h HandlerFunc[Req, Res], opts ...EndpointOption[Req, Res],
) *Endpoint[Req, Res] {
	e := &Endpoint[Req, Res]{name: name, handle: h}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Bind implements [Service].
func (e *Endpoint[Req, Res]) Bind(h *Host) BareHandler {
	b := &binding[Req, Res]{
		Endpoint: e,
		host:     h,
		filters: Filters{
			Request:  append(append([]RequestFilter{}, h.filters.Request...), e.filters.Request...),
			Response: append(append([]ResponseFilter{}, h.filters.Response...), e.filters.Response...),
		},
	}

	return BareHandlerFunc(b.serve)
}

type binding[Req, Res any] struct {
	*Endpoint[Req, Res]
	host    *Host
	filters Filters
}

func (b *binding[Req, Res]) serve(w Sink, r *http.Request) error {
	ctx := r.Context()
	rc := NewRequestContext(r, b.host.types.Negotiate(r))
	rc.Operation = b.name

	result, err := b.process(ctx, rc, w, r)
	if err != nil {
		b.host.logs.LogWriteError(err)
		return b.host.writer.Recover(ctx, w, rc, rc.ContentType, err, StatusOf(err))
	}

	if w.IsClosed() {
		return nil
	}

	prefix, suffix := jsonpPadding(r, rc.ContentType)
	_, err = b.host.writer.WriteTo(ctx, w, rc, ResultOf(result), prefix, suffix)

	return err
}

func (b *binding[Req, Res]) process(ctx context.Context, rc *RequestContext, w Sink, r *http.Request) (any, error) {
	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			return nil, NewError(CodeBadRequest, errors.Wrap(err, "read request body"))
		}
	}

	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, NewError(CodeBadRequest, errors.New("request body is not valid JSON"))
	}

	if parsed := gjson.ParseBytes(body); parsed.IsArray() {
		return b.processBatch(ctx, rc, w, parsed.Array())
	}

	req, err := decodeRequest[Req](body)
	if err != nil {
		return nil, err
	}

	return b.run(ctx, rc, w, newTurnstile(1), req, b.handle)
}

func (b *binding[Req, Res]) processBatch(ctx context.Context, rc *RequestContext, w Sink, elems []gjson.Result,
) (any, error) {
	reqs := make([]Req, len(elems))
	for i, elem := range elems {
		req, err := decodeRequest[Req]([]byte(elem.Raw))
		if err != nil {
			return nil, errors.Wrapf(err, "batch element %d", i)
		}

		reqs[i] = req
	}

	if b.batch != nil {
		return b.batch(ctx, rc, &Batch[Req, Res]{Requests: reqs, each: b.each(w)})
	}

	return b.each(w)(ctx, rc, reqs, b.handle)
}

func (b *binding[Req, Res]) each(w Sink,
) func(ctx context.Context, rc *RequestContext, reqs []Req, fn HandlerFunc[Req, Res]) ([]Res, error) {
	return func(ctx context.Context, rc *RequestContext, reqs []Req, fn HandlerFunc[Req, Res]) ([]Res, error) {
		turns := newTurnstile(len(reqs))

		out := make([]Res, len(reqs))
		err := ForEachConcurrent(ctx, rc, reqs, b.host.cfg.BatchConcurrency(),
			func(ctx context.Context, rc *RequestContext, i int, req Req) error {
				res, err := b.run(ctx, rc, w, turns, req, fn)
				out[i] = res

				return err
			})

		return out, err
	}
}

// run handles a single request DTO. The sink is shared between batch elements: request filters take their turn
// in element order and response filters run one at a time.
func (b *binding[Req, Res]) run(
	ctx context.Context, rc *RequestContext, w Sink, turns *turnstile, req Req, fn HandlerFunc[Req, Res],
) (res Res, err error) {
	i, _ := rc.AutoBatchIndex()

	var closed bool
	err = turns.do(ctx, i, func() error {
		err := b.filters.runRequest(ctx, rc, w, req)
		closed = w.IsClosed()

		return err
	})
	if err != nil || closed {
		return res, err
	}

	if res, err = fn(ctx, rc, req); err != nil {
		return res, err
	}

	turns.mu.Lock()
	defer turns.mu.Unlock()

	return res, b.filters.runResponse(ctx, rc, w, res)
}

// turnstile lets batch elements pass one at a time and in element order.
type turnstile struct {
	mu    sync.Mutex
	turns []chan struct{}
}

func newTurnstile(n int) *turnstile {
	t := &turnstile{turns: make([]chan struct{}, max(n, 1)+1)}
	for i := range t.turns {
		t.turns[i] = make(chan struct{})
	}

	close(t.turns[0])

	return t
}

// do waits until all elements before i passed and runs fn. The turn is released even when waiting fails.
func (t *turnstile) do(ctx context.Context, i int, fn func() error) error {
	defer close(t.turns[i+1])

	select {
	case <-t.turns[i]:
	default:
		select {
		case <-t.turns[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return fn()
}

// decodeRequest decodes a JSON request DTO. Pointer types are allocated also when the body is empty.
func decodeRequest[Req any](body []byte) (Req, error) {
	var req Req
	if t := reflect.TypeOf(req); t != nil && t.Kind() == reflect.Pointer {
		req = reflect.New(t.Elem()).Interface().(Req) //nolint:forcetypeassert
	}

	if len(body) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, NewError(CodeBadRequest, errors.Wrap(err, "decode request"))
	}

	return req, nil
}

var jsonpCallback = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// jsonpPadding returns the padding for JSONP requests: GET requests for JSON with a "callback" query parameter.
func jsonpPadding(r *http.Request, ct string) (prefix, suffix []byte) {
	if r.Method != http.MethodGet || !isJSONFamily(ct) {
		return nil, nil
	}

	cb := r.URL.Query().Get("callback")
	if cb == "" || !jsonpCallback.MatchString(cb) {
		return nil, nil
	}

	return []byte(cb + "("), []byte(")")
}
