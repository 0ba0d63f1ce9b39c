package bdispatch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bdispatch"
	"github.com/stretchr/testify/require"
)

type greet struct {
	Name string `json:"name"`
}

type greeting struct {
	Message string `json:"message"`
	Foo     string `json:"foo"`
}

func serveGreet(ctx context.Context, rc *bdispatch.RequestContext, req *greet) (*greeting, error) {
	return &greeting{Message: "hello " + req.Name, Foo: fmt.Sprint(rc.Request.Context().Value(ctxKey("foo")))}, nil
}

type ctxKey string

func middleware1(next bdispatch.BareHandler) bdispatch.BareHandler {
	return bdispatch.BareHandlerFunc(func(w bdispatch.Sink, r *http.Request) error {
		return next.ServeBareBHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey("foo"), "bar")))
	})
}

func TestServeMux(t *testing.T) {
	mux := bdispatch.NewServeMux()
	mux.Use(middleware1)
	mux.Handle("POST /greet", bdispatch.NewEndpoint("Greet", serveGreet))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":"foo"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"message":"hello foo","foo":"bar"}`, rec.Body.String())
}

func TestHandleStd(t *testing.T) {
	stdHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "std:%s", r.URL.Path)
	})

	mux := bdispatch.NewServeMux()
	mux.HandleStd("GET /std", stdHandler)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/std", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "std:/std", rec.Body.String())
}

func TestHandleStdErrorOwnership(t *testing.T) {
	stdHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "custom error", http.StatusTeapot)
	})

	mux := bdispatch.NewServeMux()
	mux.HandleStd("GET /teapot", stdHandler)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "custom error\n", rec.Body.String())
}

func TestHandleStdMiddlewareApplied(t *testing.T) {
	mux := bdispatch.NewServeMux()
	mux.Use(middleware1)
	mux.HandleStd("GET /std", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "val:%v", r.Context().Value(ctxKey("foo")))
	}))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/std", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "val:bar", rec.Body.String())
}

func TestUseAfterHandle(t *testing.T) {
	mux := bdispatch.NewServeMux()
	mux.Handle("POST /greet", bdispatch.NewEndpoint("Greet", serveGreet))
	require.PanicsWithValue(t, "bdispatch: cannot call Use() after calling Handle", func() {
		mux.Use(middleware1)
	})
}
