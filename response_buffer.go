package bdispatch

import (
	"bytes"
	"net/http"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrBufferFull is returned when a write would grow the response buffer past its limit.
var ErrBufferFull = errors.New("response buffer is full")

// ErrSinkClosed is returned when writing to a sink that has already been ended.
var ErrSinkClosed = errors.New("response has already ended")

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// ResponseBuffer is the buffered [Sink] used by the mux. Status, headers and body are held in memory until the
// buffer is flushed, so anything written before an error can be discarded and replaced by an error response.
type ResponseBuffer struct {
	resp   http.ResponseWriter
	header http.Header
	buf    *bytes.Buffer
	limit  int

	status      int
	description string
	wroteHeader bool
	flushed     bool
	closed      bool
}

// NewResponseWriter returns a buffered sink that writes to resp. A negative limit disables the buffer limit.
func NewResponseWriter(resp http.ResponseWriter, limit int) *ResponseBuffer {
	return newBufferResponse(resp, limit)
}

func newBufferResponse(resp http.ResponseWriter, limit int) *ResponseBuffer {
	buf, _ := bufPool.Get().(*bytes.Buffer)
	buf.Reset()

	return &ResponseBuffer{
		resp:   resp,
		header: http.Header{},
		buf:    buf,
		limit:  limit,
		status: http.StatusOK,
	}
}

// Header returns the buffered header map.
func (w *ResponseBuffer) Header() http.Header { return w.header }

// Write buffers p. Writes that do not fit the limit are rejected as a whole.
func (w *ResponseBuffer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrSinkClosed
	}

	if w.limit >= 0 && w.buf.Len()+len(p) > w.limit {
		return 0, errors.Wrapf(ErrBufferFull, "limit of %d bytes", w.limit)
	}

	w.wroteHeader = true

	return w.buf.Write(p)
}

// WriteHeader records the status code. Like the standard library only the first call counts.
func (w *ResponseBuffer) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}

	w.wroteHeader = true
	w.status = status
}

// SetStatus overwrites the status code and description as long as nothing was flushed yet.
func (w *ResponseBuffer) SetStatus(status int, description string) {
	if w.flushed {
		return
	}

	w.status = status
	w.description = description
	w.wroteHeader = true
}

// Status returns the buffered status code.
func (w *ResponseBuffer) Status() int { return w.status }

// StatusDescription returns the status description. The standard library always emits its own reason phrase on
// the wire, the description is kept for handlers and logs.
func (w *ResponseBuffer) StatusDescription() string {
	if w.description == "" {
		return strconv.Itoa(w.status)
	}

	return w.description
}

// ContentType returns the buffered Content-Type header.
func (w *ResponseBuffer) ContentType() string { return w.header.Get("Content-Type") }

// SetContentType sets the buffered Content-Type header.
func (w *ResponseBuffer) SetContentType(ct string) { w.header.Set("Content-Type", ct) }

// Reset discards the buffered body, headers and status. It panics when the response was already flushed.
func (w *ResponseBuffer) Reset() {
	if w.flushed {
		panic("bdispatch: cannot reset, response was already flushed")
	}

	w.buf.Reset()
	w.header = http.Header{}
	w.status = http.StatusOK
	w.description = ""
	w.wroteHeader = false
}

// Flushed reports whether headers were already sent to the underlying writer.
func (w *ResponseBuffer) Flushed() bool { return w.flushed }

// FlushBuffer writes the buffered response to the underlying writer.
func (w *ResponseBuffer) FlushBuffer() error {
	if !w.flushed {
		dst := w.resp.Header()
		for k, v := range w.header {
			dst[k] = v
		}

		w.resp.WriteHeader(w.status)
		w.flushed = true
	}

	if w.buf.Len() == 0 {
		return nil
	}

	if _, err := w.resp.Write(w.buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write buffer to underlying response")
	}

	w.buf.Reset()

	return nil
}

// FlushError flushes the buffer and then the underlying writer if it supports it.
func (w *ResponseBuffer) FlushError() error {
	if err := w.FlushBuffer(); err != nil {
		return err
	}

	if err := http.NewResponseController(w.resp).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return errors.Wrap(err, "failed to flush underlying response")
	}

	return nil
}

// Flush implements http.Flusher.
func (w *ResponseBuffer) Flush() { _ = w.FlushError() }

// End finalizes the response: the buffer is written out and further writes fail.
func (w *ResponseBuffer) End() error {
	if w.closed {
		return nil
	}

	err := w.FlushBuffer()
	w.closed = true

	return err
}

// IsClosed reports whether End was called.
func (w *ResponseBuffer) IsClosed() bool { return w.closed }

// Unwrap returns the underlying writer for http.ResponseController.
func (w *ResponseBuffer) Unwrap() http.ResponseWriter { return w.resp }

// Free returns the buffer to the pool. The writer must not be used afterwards.
func (w *ResponseBuffer) Free() {
	if w.buf == nil {
		return
	}

	w.buf.Reset()
	bufPool.Put(w.buf)
	w.buf = new(bytes.Buffer)
}

var _ Sink = &ResponseBuffer{}
