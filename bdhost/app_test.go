package bdhost_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/advdv/bdispatch"
	"github.com/advdv/bdispatch/bdclient"
	"github.com/advdv/bdispatch/bdhost"
	"github.com/advdv/bdispatch/bdhost/bdhosttest"
	"github.com/advdv/bdispatch/internal/example"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TestEnv is a test environment with app-specific fields beyond BaseEnvironment.
type TestEnv struct {
	bdhost.BaseEnvironment
	Greeting string `env:"GREETING" envDefault:"Hello"`
}

type Greet struct {
	Name string `json:"name"`
}

type GreetResponse struct {
	Message     string `json:"message"`
	HasDeadline bool   `json:"hasDeadline"`
	HasS3       bool   `json:"hasS3"`
}

type Handlers struct {
	rt *bdhost.Runtime[TestEnv]
	s3 *s3.Client
}

func NewHandlers(rt *bdhost.Runtime[TestEnv], s3 *s3.Client) *Handlers {
	return &Handlers{rt: rt, s3: s3}
}

func (h *Handlers) Greet(ctx context.Context, _ *bdispatch.RequestContext, req *Greet) (*GreetResponse, error) {
	bdhost.Log(ctx).Info("greeting", zap.String("name", req.Name))

	if req.Name == "" {
		return nil, bdispatch.NewError(bdispatch.CodeNotFound, errors.New("nobody to greet"))
	}

	return &GreetResponse{
		Message:     h.rt.Env().Greeting + ", " + req.Name,
		HasDeadline: bdhost.RequestRemainingTime(ctx) > 0,
		HasS3:       h.s3 != nil,
	}, nil
}

func get(t *testing.T, url string, hdr ...string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)

	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestApp(t *testing.T) {
	bdhosttest.SetBaseEnv(t, 18181).
		ServiceName("greeter").
		HealthPath("/ready").
		GlobalResponseHeaders("X-Powered-By: bdispatch").
		HTMLErrorPageCodes("404")
	t.Setenv("GREETING", "Hi")

	app := bdhosttest.New[TestEnv](t,
		func(m *bdhost.Mux, h *Handlers) {
			m.Handle("/greet", bdispatch.NewEndpoint("Greet", h.Greet))
		},
		bdhost.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bdhost.WithHostOptions(bdispatch.WithRequestFilter(example.AutoBatchIndexRequestFilter)),
		bdhost.WithFx(fx.Provide(NewHandlers)),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	baseURL := "http://localhost:18181"
	client := bdclient.New(baseURL)

	t.Run("single", func(t *testing.T) {
		res, err := bdclient.Send[*Greet, GreetResponse](t.Context(), client, "/greet", &Greet{Name: "Ada"})
		require.NoError(t, err)
		require.Equal(t, "Hi, Ada", res.Value.Message)
		require.True(t, res.Value.HasDeadline)
		require.True(t, res.Value.HasS3)
		require.Equal(t, "bdispatch", res.Header.Get("X-Powered-By"))
	})

	t.Run("batch", func(t *testing.T) {
		res, err := bdclient.SendAll[*Greet, GreetResponse](t.Context(), client, "/greet",
			[]*Greet{{Name: "A"}, {Name: "B"}})
		require.NoError(t, err)
		require.Len(t, res.Value, 2)
		require.Equal(t, "Hi, B", res.Value[1].Message)
		require.Equal(t, "1", res.Header.Get(example.RequestFilterHeader))
	})

	t.Run("json error", func(t *testing.T) {
		_, err := bdclient.Send[*Greet, GreetResponse](t.Context(), client, "/greet", &Greet{})

		var serr *bdclient.StatusError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, http.StatusNotFound, serr.Status)
		require.Equal(t, "nobody to greet", serr.Response.ResponseStatus.Message)
	})

	t.Run("html error page", func(t *testing.T) {
		resp, body := get(t, baseURL+"/greet", "Accept", "text/html")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		require.Contains(t, body, "<footer>greeter</footer>")
		require.Equal(t, "bdispatch", resp.Header.Get("X-Powered-By"))
	})

	t.Run("health", func(t *testing.T) {
		resp, _ := get(t, baseURL+"/ready")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, body := get(t, baseURL+"/metrics")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `bdispatch_writes_total{outcome="fallback",variant="none"} 2`)

		// durations are recorded after the response was flushed to the client
		require.Eventually(t, func() bool {
			return strings.Contains(scrape(baseURL+"/metrics"),
				`bdispatch_request_duration_seconds_count{code="404",method="GET"} 1`)
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func scrape(url string) string {
	resp, err := http.Get(url) //nolint:noctx
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	return string(body)
}

func TestAppHealthHandler(t *testing.T) {
	bdhosttest.SetBaseEnv(t, 18182)

	app := bdhosttest.New[bdhost.BaseEnvironment](t,
		func(*bdhost.Mux) {},
		bdhost.WithHealthHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	resp, _ := get(t, "http://localhost:18182/health")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
