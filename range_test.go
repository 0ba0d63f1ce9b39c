package bdispatch_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bdispatch"
	"github.com/stretchr/testify/require"
)

func TestRangeResult(t *testing.T) {
	for _, tt := range []struct {
		name         string
		rangeHdr     string
		opts         []bdispatch.ConfigOption
		expStatus    int
		expBody      string
		expCntRange  string
		expHandledOk bool
	}{
		{name: "no range", expStatus: http.StatusOK, expBody: "0123456789"},
		{name: "closed range", rangeHdr: "bytes=2-5", expStatus: 206, expBody: "2345", expCntRange: "bytes 2-5/10"},
		{name: "open range", rangeHdr: "bytes=7-", expStatus: 206, expBody: "789", expCntRange: "bytes 7-9/10"},
		{name: "suffix range", rangeHdr: "bytes=-3", expStatus: 206, expBody: "789", expCntRange: "bytes 7-9/10"},
		{name: "end past size", rangeHdr: "bytes=8-100", expStatus: 206, expBody: "89", expCntRange: "bytes 8-9/10"},
		{name: "unsatisfiable", rangeHdr: "bytes=20-", expStatus: 416, expCntRange: "bytes */10"},
		{
			name: "partial disabled", rangeHdr: "bytes=2-5", expStatus: http.StatusOK, expBody: "0123456789",
			opts: []bdispatch.ConfigOption{bdispatch.WithPartialResponses(false)},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			wr, _ := newWriter(t, tt.opts...)
			rec, sink := newSink()

			req := httptest.NewRequest(http.MethodGet, "/file.txt", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}

			rr := bdispatch.NewRangeResult(req, strings.NewReader("0123456789"), bdispatch.MimePlainText)
			handled, err := wr.WriteTo(t.Context(), sink, bdispatch.NewRequestContext(req, bdispatch.MimeJSON),
				bdispatch.ResultOf(rr), nil, nil)
			require.NoError(t, err)
			require.True(t, handled)

			require.Equal(t, tt.expStatus, rec.Code)
			require.Equal(t, tt.expBody, rec.Body.String())
			require.Equal(t, tt.expCntRange, rec.Header().Get("Content-Range"))
			require.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
			require.Equal(t, bdispatch.MimePlainText, rec.Header().Get("Content-Type"))
		})
	}
}

func TestRangeResultPadded(t *testing.T) {
	wr, _ := newWriter(t)
	rec, sink := newSink()

	req := httptest.NewRequest(http.MethodGet, "/data.json?callback=cb", nil)
	req.Header.Set("Range", "bytes=0-3")

	rr := bdispatch.NewRangeResult(req, strings.NewReader(`[1,2,3,4,5]`), bdispatch.MimeJSON)
	handled, err := wr.WriteTo(t.Context(), sink, bdispatch.NewRequestContext(req, bdispatch.MimeJSON),
		bdispatch.ResultOf(rr), []byte("cb("), []byte(")"))
	require.NoError(t, err)
	require.True(t, handled)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	require.Equal(t, "cb([1,2)", rec.Body.String())
	require.Equal(t, "bytes 0-3/11", rec.Header().Get("Content-Range"))
	require.Empty(t, rec.Header().Get("Content-Length"))
}
