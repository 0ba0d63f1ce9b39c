package bdhosttest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bdispatch"
	"github.com/advdv/bdispatch/bdhost/bdhosttest"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Text string `json:"text"`
}

func TestCallService(t *testing.T) {
	svc := bdispatch.NewEndpoint("Echo", func(_ context.Context, _ *bdispatch.RequestContext, req *echo) (*echo, error) {
		return req, nil
	})

	rec := bdhosttest.CallService(t, svc,
		httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`[{"text":"a"},{"text":"b"}]`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"text":"a"},{"text":"b"}]`, rec.Body.String())
}
