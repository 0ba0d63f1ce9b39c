package bdhost_test

import (
	"testing"
	"time"

	"github.com/advdv/bdispatch"
	"github.com/advdv/bdispatch/bdhost"
	"github.com/advdv/bdispatch/bdhost/bdhosttest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseEnvDefaults(t *testing.T) {
	bdhosttest.SetBaseEnv(t, 18100)

	env, err := bdhost.ParseEnv[bdhost.BaseEnvironment]()()
	require.NoError(t, err)

	require.Equal(t, 18100, env.Port)
	require.Equal(t, "test", env.ServiceName)
	require.Equal(t, "/health", env.HealthPath)
	require.Equal(t, "/metrics", env.MetricsPath)
	require.Equal(t, zapcore.InfoLevel, env.LogLevel)
	require.Equal(t, 30*time.Second, env.RequestTimeout)
	require.Equal(t, []string{bdispatch.MimeJSON}, env.UTF8ContentTypes)
	require.Equal(t, bdispatch.MimeJSON, env.DefaultContentType)
	require.True(t, env.AllowPartialResponses)
	require.True(t, env.WriteErrorsToResponse)
	require.False(t, env.DebugMode)
	require.Empty(t, env.GlobalResponseHeaders)
	require.Equal(t, -1, env.BufferLimit)
	require.Zero(t, env.BatchConcurrency)
}

func TestParseEnvOverrides(t *testing.T) {
	bdhosttest.SetBaseEnv(t, 18101).
		GlobalResponseHeaders("X-Powered-By: bdispatch | Vary: Accept").
		DebugMode(true).
		HTMLErrorPageCodes("404,500-599").
		BatchConcurrency(4)
	t.Setenv("BD_LOG_LEVEL", "DEBUG")
	t.Setenv("BD_UTF8_CONTENT_TYPES", "application/json,text/plain")
	t.Setenv("BD_ALLOW_PARTIAL_RESPONSES", "false")
	t.Setenv("BD_BUFFER_LIMIT", "1024")

	env, err := bdhost.ParseEnv[bdhost.BaseEnvironment]()()
	require.NoError(t, err)

	require.Equal(t, zapcore.DebugLevel, env.LogLevel)
	require.Equal(t, bdispatch.HeaderList{
		{Name: "X-Powered-By", Value: "bdispatch"},
		{Name: "Vary", Value: "Accept"},
	}, env.GlobalResponseHeaders)
	require.Equal(t, []string{"application/json", "text/plain"}, env.UTF8ContentTypes)
	require.True(t, env.DebugMode)
	require.False(t, env.AllowPartialResponses)
	require.Equal(t, "404,500-599", env.HTMLErrorPageCodes)
	require.Equal(t, 1024, env.BufferLimit)
	require.Equal(t, 4, env.BatchConcurrency)
}

func TestParseEnvErrors(t *testing.T) {
	t.Run("missing required", func(t *testing.T) {
		t.Setenv("BD_SERVICE_NAME", "test")

		_, err := bdhost.ParseEnv[bdhost.BaseEnvironment]()()
		require.ErrorContains(t, err, "BD_PORT")
	})

	t.Run("invalid header list", func(t *testing.T) {
		bdhosttest.SetBaseEnv(t, 18102).GlobalResponseHeaders("no-colon-here")

		_, err := bdhost.ParseEnv[bdhost.BaseEnvironment]()()
		require.ErrorContains(t, err, "Name: value")
	})
}

func TestNewConfig(t *testing.T) {
	bdhosttest.SetBaseEnv(t, 18103).
		GlobalResponseHeaders("X-Powered-By: bdispatch").
		HTMLErrorPageCodes("404,503").
		DebugMode(true)

	env, err := bdhost.ParseEnv[bdhost.BaseEnvironment]()()
	require.NoError(t, err)

	cfg, err := bdhost.NewConfig(env)
	require.NoError(t, err)
	require.True(t, cfg.DebugMode())
	require.Equal(t, bdispatch.HeaderList{{Name: "X-Powered-By", Value: "bdispatch"}}, cfg.GlobalHeaders())
	require.ElementsMatch(t, []int{404, 503}, cfg.ErrorHandlerStatuses())

	env.HTMLErrorPageCodes = "not an expression"
	_, err = bdhost.NewConfig(env)
	require.ErrorContains(t, err, "invalid html error page codes")
}
