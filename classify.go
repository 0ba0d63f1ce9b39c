package bdispatch

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// Variant is the native output mode of a result.
type Variant int

const (
	// VariantNone means the result has no native output mode and falls through to text or serialization.
	VariantNone Variant = iota
	VariantPartial
	VariantStreamWriter
	VariantStream
	VariantBytes
)

func (v Variant) String() string {
	switch v {
	case VariantNone:
		return "none"
	case VariantPartial:
		return "partial"
	case VariantStreamWriter:
		return "stream_writer"
	case VariantStream:
		return "stream"
	case VariantBytes:
		return "bytes"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Classify determines how a result is written natively. The checks are ordered: partial, stream writer, stream
// and bytes. An [*HTTPResult] that wraps bytes, a stream or a stream writer writes itself and is classified as a
// stream writer.
func Classify(cfg *Config, r Result) Variant {
	switch r := r.(type) {
	case nil:
		return VariantNone
	case *HTTPResult:
		if r == nil {
			return VariantNone
		}

		r = r.flatten()

		switch inner := Classify(cfg, r.Response); inner {
		case VariantPartial:
			return VariantPartial
		case VariantStreamWriter, VariantStream, VariantBytes:
			if _, ok := r.Response.(PartialResult); ok {
				return inner
			}
			return VariantStreamWriter
		default:
			return VariantNone
		}
	case PartialResult:
		if cfg.AllowPartialResponses() && r.Writer.IsPartialRequest() {
			return VariantPartial
		}

		switch r.Writer.(type) {
		case io.WriterTo:
			return VariantStreamWriter
		case io.Reader:
			return VariantStream
		default:
			return VariantNone
		}
	case StreamerResult:
		return VariantStreamWriter
	case StreamResult:
		return VariantStream
	case BytesResult:
		return VariantBytes
	case TextResult, ValueResult:
		return VariantNone
	default:
		panic(fmt.Sprintf("bdispatch: unknown result type %T", r))
	}
}

// emit writes the body of a natively classified result, surrounded by prefix and suffix.
func emit(sink Sink, variant Variant, r Result, prefix, suffix []byte) error {
	if variant == VariantBytes {
		sink.SetContentType(MimeBinary)
	}

	if err := writeAll(sink, prefix); err != nil {
		return err
	}

	if err := emitBody(sink, variant, r); err != nil {
		return err
	}

	// a length set by the result does not include the padding
	if len(prefix)+len(suffix) > 0 {
		sink.Header().Del("Content-Length")
	}

	return writeAll(sink, suffix)
}

func emitBody(sink Sink, variant Variant, r Result) error {
	if h, ok := r.(*HTTPResult); ok {
		h = h.flatten()
		if variant == VariantPartial {
			return emitBody(sink, variant, h.Response)
		}

		if p, ok := h.Response.(PartialResult); ok {
			return emitBody(sink, variant, p)
		}

		_, err := h.WriteTo(sink)

		return err
	}

	var err error
	switch variant {
	case VariantPartial:
		err = r.(PartialResult).Writer.WritePartialTo(sink)
	case VariantStreamWriter:
		_, err = writerToOf(r).WriteTo(sink)
	case VariantStream:
		_, err = io.Copy(sink, readerOf(r))
	case VariantBytes:
		_, err = sink.Write(r.(BytesResult))
	default:
		return errors.Newf("result %T cannot be emitted as %s", r, variant)
	}

	return err
}

func writerToOf(r Result) io.WriterTo {
	if p, ok := r.(PartialResult); ok {
		return p.Writer.(io.WriterTo)
	}

	return r.(StreamerResult).Writer
}

func readerOf(r Result) io.Reader {
	if p, ok := r.(PartialResult); ok {
		return p.Writer.(io.Reader)
	}

	return r.(StreamResult).Reader
}

func writeAll(w io.Writer, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	_, err := w.Write(p)

	return err
}
