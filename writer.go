package bdispatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/advdv/bdispatch"

// Writer turns results into responses. It is safe for concurrent use.
type Writer struct {
	cfg    *Config
	types  Negotiator
	logs   Logger
	tracer trace.Tracer
	obs    Observer
}

// WriterOption configures the [Writer].
type WriterOption func(*Writer)

// WithTracerProvider records a span for every write and recovery.
func WithTracerProvider(tp trace.TracerProvider) WriterOption {
	return func(w *Writer) { w.tracer = tp.Tracer(tracerName) }
}

// WithObserver reports the outcome of every write.
func WithObserver(o Observer) WriterOption {
	return func(w *Writer) { w.obs = o }
}

// NewWriter inits the writer.
func NewWriter(cfg *Config, types Negotiator, logs Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		cfg:    cfg,
		types:  types,
		logs:   logs,
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		obs:    nopObserver{},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Config returns the configuration the writer was created with.
func (w *Writer) Config() *Config { return w.cfg }

// Write writes result to the sink. It returns true when the result was written completely through a native output
// mode, a custom error handler or the recovery path, and false when the body was produced by the serializer. The
// sink is always ended when Write returns. Errors are only returned when writing errors to the response is
// disabled or when the error response itself could not be written.
func (w *Writer) Write(
	ctx context.Context,
	sink Sink,
	result Result,
	serialize SerializeFunc,
	rc *RequestContext,
	prefix, suffix []byte,
) (bool, error) {
	return w.dispatch(ctx, sink, result, serialize, rc, rc.contentType(w.cfg.DefaultContentType()), prefix, suffix)
}

// WriteTo writes result using the serializer of the negotiated content type. An [*HTTPResult] with an explicit
// content type is serialized in that content type instead.
func (w *Writer) WriteTo(ctx context.Context, sink Sink, rc *RequestContext, result Result, prefix, suffix []byte,
) (bool, error) {
	ct := rc.contentType(w.cfg.DefaultContentType())
	if h, ok := result.(*HTTPResult); ok && h != nil {
		h = h.flatten()
		if h.ContentType != "" {
			ct = h.ContentType
		}

		result = h
	}

	return w.dispatch(ctx, sink, result, w.types.Resolve(ct), rc, ct, prefix, suffix)
}

// WriteText writes a plain text body. An empty or HTML content type is replaced by the negotiated one.
func (w *Writer) WriteText(ctx context.Context, sink Sink, rc *RequestContext, text string) (bool, error) {
	return w.Write(ctx, sink, TextResult(text), nil, rc, nil, nil)
}

// WriteError writes the error response for err with the status it carries, or 500.
func (w *Writer) WriteError(ctx context.Context, sink Sink, rc *RequestContext, err error) error {
	return w.Recover(ctx, sink, rc, rc.contentType(w.cfg.DefaultContentType()), err, StatusOf(err))
}

func (w *Writer) dispatch(
	ctx context.Context,
	sink Sink,
	result Result,
	serialize SerializeFunc,
	rc *RequestContext,
	ct string,
	prefix, suffix []byte,
) (handled bool, err error) {
	ctx, span := w.tracer.Start(ctx, "bdispatch.write", trace.WithAttributes(
		attribute.String("bdispatch.content_type", ct),
		attribute.String("bdispatch.result_type", fmt.Sprintf("%T", result)),
	))
	defer span.End()

	defer func() {
		if endErr := sink.End(); endErr != nil {
			w.logs.LogImplicitFlushError(endErr)
		}
	}()

	handled, outcome, variant, werr := w.write(ctx, sink, result, serialize, rc, ct, prefix, suffix)
	if werr == nil {
		span.SetAttributes(attribute.String("bdispatch.outcome", outcome.String()))
		w.obs.ObserveWrite(outcome, variant)

		return handled, nil
	}

	span.RecordError(werr)
	span.SetStatus(codes.Error, werr.Error())
	w.logs.LogWriteError(werr)

	if !w.cfg.WriteErrorsToResponse() {
		w.obs.ObserveWrite(OutcomeFailed, variant)
		return false, werr
	}

	if sink.IsClosed() {
		w.obs.ObserveWrite(OutcomeRecovered, variant)
		return true, nil
	}

	if recErr := w.Recover(ctx, sink, rc, ct, werr, errorStatus(werr, result)); recErr != nil {
		w.logs.LogRecoveryFailure(werr, recErr)
		w.obs.ObserveWrite(OutcomeFailed, variant)

		return false, werr
	}

	w.obs.ObserveWrite(OutcomeRecovered, variant)

	return true, nil
}

// write runs the actual pipeline. Panics are turned into errors.
func (w *Writer) write(
	ctx context.Context,
	sink Sink,
	result Result,
	serialize SerializeFunc,
	rc *RequestContext,
	ct string,
	prefix, suffix []byte,
) (handled bool, outcome Outcome, variant Variant, err error) {
	defer func() {
		if e := recover(); e != nil {
			handled, err = false, errors.Newf("recovered: %v", e)
		}
	}()

	if isNilResult(result) {
		return true, OutcomeEmpty, VariantNone, nil
	}

	w.applyGlobalHeaders(sink)

	httpRes, isHTTP := result.(*HTTPResult)
	if isHTTP {
		httpRes = httpRes.flatten()
		result = httpRes

		if httpRes.IsError() {
			ok, err := w.handleCustomError(ctx, sink, rc, ct, httpRes.StatusCode(),
				httpRes.ErrorResponse(w.cfg.DebugMode()))
			if err != nil {
				return false, OutcomeFailed, VariantNone, errors.Wrap(err, "custom error handler")
			}

			if ok {
				return true, OutcomeCustomError, VariantNone, nil
			}
		}

		sink.SetStatus(httpRes.StatusCode(), httpRes.Description())
		if httpRes.ContentType == "" {
			httpRes.ContentType = ct
		}

		sink.SetContentType(httpRes.ContentType)
	}

	applyOptions(sink, optionsOf(result))

	if variant = Classify(w.cfg, result); variant != VariantNone {
		if err := emit(sink, variant, result, prefix, suffix); err != nil {
			return false, OutcomeFailed, variant, errors.Wrapf(err, "write %s result", variant)
		}

		if err := sink.FlushError(); err != nil {
			return false, OutcomeFailed, variant, err
		}

		if err := dispose(result); err != nil {
			return false, OutcomeFailed, variant, errors.Wrap(err, "dispose result")
		}

		return true, OutcomeNative, variant, nil
	}

	if isHTTP {
		result = httpRes.Response
		if httpRes.IsError() && result == nil {
			result = ValueResult{Value: httpRes.ErrorResponse(w.cfg.DebugMode())}
		}
	}

	w.finalizeContentType(sink, ct, prefix != nil)

	if text, ok := result.(TextResult); ok {
		if err := writeText(sink, text, prefix, suffix); err != nil {
			return false, OutcomeFailed, variant, err
		}

		return true, OutcomeFallback, variant, nil
	}

	if serialize == nil {
		return false, OutcomeFailed, variant, errors.Wrapf(ErrUnsupportedResult,
			"%T needs a serializer for %q but none was supplied", result, ct)
	}

	if err := writeAll(sink, prefix); err != nil {
		return false, OutcomeFailed, variant, err
	}

	if result != nil {
		if err := serialize(ctx, rc, valueOf(result), sink); err != nil {
			return false, OutcomeFailed, variant, errors.Wrap(err, "serialize result")
		}
	}

	if err := writeAll(sink, suffix); err != nil {
		return false, OutcomeFailed, variant, err
	}

	if err := dispose(result); err != nil {
		return false, OutcomeFailed, variant, errors.Wrap(err, "dispose result")
	}

	return false, OutcomeFallback, variant, nil
}

// finalizeContentType replaces an unset or generic HTML content type, switches JSON to JavaScript for padded
// (JSONP) bodies and appends the utf-8 charset where configured.
func (w *Writer) finalizeContentType(sink Sink, ct string, padded bool) {
	if cur := sink.ContentType(); cur == "" || cur == MimeHTML {
		sink.SetContentType(ct)
	}

	if padded && isJSONFamily(sink.ContentType()) {
		sink.SetContentType(MimeJavaScript)
	}

	if cur := sink.ContentType(); w.cfg.NeedsUTF8Suffix(cur) {
		sink.SetContentType(cur + UTF8Suffix)
	}
}

func writeText(sink Sink, text TextResult, prefix, suffix []byte) error {
	if err := writeAll(sink, prefix); err != nil {
		return err
	}

	if _, err := sink.Write([]byte(text)); err != nil {
		return errors.Wrap(err, "write text result")
	}

	return writeAll(sink, suffix)
}

// Recover writes the error response for err. Anything written so far is discarded if the sink was not flushed
// yet, in which case the global headers are applied again. A custom error handler registered for the status takes
// over when the content type is HTML. The sink is ended afterwards.
func (w *Writer) Recover(
	ctx context.Context,
	sink Sink,
	rc *RequestContext,
	contentType string,
	err error,
	status int,
) (rerr error) {
	ctx, span := w.tracer.Start(ctx, "bdispatch.recover", trace.WithAttributes(
		attribute.Int("http.response.status_code", status),
	))
	defer span.End()

	defer func() {
		if e := recover(); e != nil {
			rerr = errors.Newf("recovered: %v", e)
		}

		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
	}()

	if status == 0 {
		status = http.StatusInternalServerError
	}

	dto := NewErrorResponse(err, w.cfg.DebugMode())

	if !sink.Flushed() {
		sink.Reset()
		w.applyGlobalHeaders(sink)
	}

	handled, herr := w.handleCustomError(ctx, sink, rc, contentType, status, dto)
	if herr != nil {
		return errors.Wrap(herr, "custom error handler")
	}

	if handled {
		return sink.End()
	}

	if cur := sink.ContentType(); cur == "" || cur == MimeHTML {
		sink.SetContentType(contentType)
	}

	if cur := sink.ContentType(); w.cfg.NeedsUTF8Suffix(contentType) && !strings.HasSuffix(cur, UTF8Suffix) {
		sink.SetContentType(cur + UTF8Suffix)
	}

	sink.SetStatus(status, "")

	if fn := w.types.Resolve(contentType); fn != nil {
		if err := fn(ctx, rc, dto, sink); err != nil {
			return errors.Wrap(err, "serialize error response")
		}
	}

	return sink.End()
}

// handleCustomError hands the response to the error handler registered for status, which only applies to HTML
// requests.
func (w *Writer) handleCustomError(
	ctx context.Context, sink Sink, rc *RequestContext, ct string, status int, dto *ErrorResponse,
) (bool, error) {
	if rc == nil || !MatchesContentType(ct, MimeHTML) {
		return false, nil
	}

	h, ok := w.cfg.ErrorHandler(status)
	if !ok {
		return false, nil
	}

	if !sink.Flushed() {
		sink.SetStatus(status, "")
	}

	return true, h.ServeError(ctx, rc, sink, dto)
}

func (w *Writer) applyGlobalHeaders(sink Sink) {
	for _, h := range w.cfg.GlobalHeaders() {
		sink.Header().Set(h.Name, h.Value)
	}
}

// applyOptions sets custom result headers. Keys containing a "." are reserved.
func applyOptions(sink Sink, opts map[string]string) {
	for k, v := range opts {
		if strings.Contains(k, ".") {
			continue
		}

		sink.Header().Set(k, v)
	}
}

// errorStatus is the status of the error response for a failed write.
func errorStatus(err error, result Result) int {
	if c := CodeOf(err); c != CodeUnknown {
		return int(c)
	}

	if h, ok := result.(*HTTPResult); ok && h != nil && h.StatusCode() >= http.StatusBadRequest {
		return h.StatusCode()
	}

	return http.StatusInternalServerError
}

func isNilResult(r Result) bool {
	if r == nil {
		return true
	}

	h, ok := r.(*HTTPResult)

	return ok && h == nil
}
