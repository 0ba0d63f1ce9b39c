package bdispatch

import "context"

// RequestFilter runs before a request DTO is handled. Filters may write to the sink, ending the sink stops
// processing of the request.
type RequestFilter func(ctx context.Context, rc *RequestContext, w Sink, req any) error

// ResponseFilter runs after a request DTO was handled and receives the handler's response.
type ResponseFilter func(ctx context.Context, rc *RequestContext, w Sink, res any) error

// MetaCarrier is implemented by response DTOs that carry a free form string map.
type MetaCarrier interface {
	GetMeta() map[string]string
	SetMeta(m map[string]string)
}

// Filters hold request and response filters. Request filters run in registration order, so do response
// filters.
type Filters struct {
	Request  []RequestFilter
	Response []ResponseFilter
}

func (f Filters) runRequest(ctx context.Context, rc *RequestContext, w Sink, req any) error {
	for _, fn := range f.Request {
		if w.IsClosed() {
			return nil
		}

		if err := fn(ctx, rc, w, req); err != nil {
			return err
		}
	}

	return nil
}

func (f Filters) runResponse(ctx context.Context, rc *RequestContext, w Sink, res any) error {
	for _, fn := range f.Response {
		if w.IsClosed() {
			return nil
		}

		if err := fn(ctx, rc, w, res); err != nil {
			return err
		}
	}

	return nil
}

// SetMetaValue sets a single meta entry on a response that carries meta data. It reports false when res does
// not implement [MetaCarrier].
func SetMetaValue(res any, key, value string) bool {
	mc, ok := res.(MetaCarrier)
	if !ok {
		return false
	}

	meta := mc.GetMeta()
	if meta == nil {
		meta = map[string]string{}
	}

	meta[key] = value
	mc.SetMeta(meta)

	return true
}
