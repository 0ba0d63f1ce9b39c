package bdhosttest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bdispatch"
)

// CallService serves req with svc bound to a host with the default configuration and returns the recorded
// response. Host options can add filters or a custom negotiator.
func CallService(tb testing.TB, svc bdispatch.Service, req *http.Request, opts ...bdispatch.HostOption) *httptest.ResponseRecorder {
	tb.Helper()

	logs := bdispatch.NewTestLogger(tb)
	host := bdispatch.NewHost(bdispatch.NewConfig(), logs, opts...)

	rec := httptest.NewRecorder()
	bdispatch.ToStd(svc.Bind(host), -1, logs).ServeHTTP(rec, req)

	return rec
}
