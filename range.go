package bdispatch

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// RangeResult serves seekable content and answers single "bytes=" range requests with 206 Partial Content.
// Requests without a Range header get the full content.
type RangeResult struct {
	content     io.ReadSeeker
	contentType string
	rangeHeader string
}

// NewRangeResult returns a partial result for content requested by r.
func NewRangeResult(r *http.Request, content io.ReadSeeker, contentType string) *RangeResult {
	return &RangeResult{content: content, contentType: contentType, rangeHeader: r.Header.Get("Range")}
}

// IsPartialRequest implements [PartialWriter].
func (r *RangeResult) IsPartialRequest() bool { return r.rangeHeader != "" }

// Options implements [HasOptions].
func (r *RangeResult) Options() map[string]string {
	opts := map[string]string{"Accept-Ranges": "bytes"}
	if r.contentType != "" {
		opts["Content-Type"] = r.contentType
	}

	return opts
}

// WritePartialTo implements [PartialWriter]. Unsatisfiable ranges result in 416 with an empty body.
func (r *RangeResult) WritePartialTo(w Sink) error {
	size, err := r.content.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "determine content size")
	}

	start, end, ok := parseRange(r.rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.SetStatus(http.StatusRequestedRangeNotSatisfiable, "Requested Range Not Satisfiable")

		return nil
	}

	if _, err := r.content.Seek(start, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to range start")
	}

	w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+
		strconv.FormatInt(size, 10))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.SetStatus(http.StatusPartialContent, "Partial Content")

	if _, err := io.CopyN(w, r.content, end-start+1); err != nil {
		return errors.Wrap(err, "copy range")
	}

	return nil
}

// WriteTo writes the full content.
func (r *RangeResult) WriteTo(w io.Writer) (int64, error) {
	if _, err := r.content.Seek(0, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "seek to start")
	}

	return io.Copy(w, r.content)
}

// Close closes the content if it is closable.
func (r *RangeResult) Close() error {
	if c, ok := r.content.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// parseRange parses the first range of a "bytes=" Range header into inclusive offsets.
func parseRange(hdr string, size int64) (start, end int64, ok bool) {
	set, found := strings.CutPrefix(strings.TrimSpace(hdr), "bytes=")
	if !found || size <= 0 {
		return 0, 0, false
	}

	first, _, _ := strings.Cut(set, ",")
	from, to, found := strings.Cut(strings.TrimSpace(first), "-")
	if !found {
		return 0, 0, false
	}

	var err error
	switch {
	case from == "":
		n, perr := strconv.ParseInt(to, 10, 64)
		if perr != nil || n <= 0 {
			return 0, 0, false
		}

		return max(size-n, 0), size - 1, true
	case to == "":
		if start, err = strconv.ParseInt(from, 10, 64); err != nil || start >= size {
			return 0, 0, false
		}

		return start, size - 1, true
	default:
		if start, err = strconv.ParseInt(from, 10, 64); err != nil || start >= size {
			return 0, 0, false
		}

		if end, err = strconv.ParseInt(to, 10, 64); err != nil || end < start {
			return 0, 0, false
		}

		return start, min(end, size-1), true
	}
}
