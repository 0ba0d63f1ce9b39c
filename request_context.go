package bdispatch

import (
	"maps"
	"net/http"
)

// RequestContext carries per-request state through the pipeline: the negotiated content type, request items
// and, while a batch is processed, the ordinal of the element being handled.
type RequestContext struct {
	// ContentType is the negotiated response content type.
	ContentType string
	// Operation names the endpoint serving the request.
	Operation string
	Request   *http.Request

	items      map[string]any
	batchIndex int
	inBatch    bool
}

// NewRequestContext returns a context for r that negotiated contentType.
func NewRequestContext(r *http.Request, contentType string) *RequestContext {
	return &RequestContext{ContentType: contentType, Request: r, items: map[string]any{}}
}

// Item returns a request item.
func (rc *RequestContext) Item(key string) (any, bool) {
	v, ok := rc.items[key]
	return v, ok
}

// SetItem stores a request item.
func (rc *RequestContext) SetItem(key string, v any) {
	if rc.items == nil {
		rc.items = map[string]any{}
	}

	rc.items[key] = v
}

// AutoBatchIndex returns the ordinal of the batch element being processed. It reports false for requests that
// are not batched. After the batch completes the ordinal of the last element remains observable.
func (rc *RequestContext) AutoBatchIndex() (int, bool) {
	if rc == nil || !rc.inBatch {
		return 0, false
	}

	return rc.batchIndex, true
}

func (rc *RequestContext) setAutoBatchIndex(i int) {
	rc.batchIndex, rc.inBatch = i, true
}

// Clone returns a copy that can be used from another goroutine. Items are copied shallowly.
func (rc *RequestContext) Clone() *RequestContext {
	cp := *rc
	cp.items = maps.Clone(rc.items)

	return &cp
}

func (rc *RequestContext) contentType(fallback string) string {
	if rc == nil || rc.ContentType == "" {
		return fallback
	}

	return rc.ContentType
}
