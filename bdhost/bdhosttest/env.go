package bdhosttest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bdhost.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the required [bdhost.BaseEnvironment] env vars to test defaults and disables
// trace exporting. Port is required because each test must use a unique port to avoid collisions.
//
// Use the returned [Env] to override individual values:
//
//	bdhosttest.SetBaseEnv(t, 18085).DebugMode(true).HTMLErrorPageCodes("404")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BD_PORT", strconv.Itoa(port))
	t.Setenv("BD_SERVICE_NAME", "test")
	t.Setenv("BD_OTEL_EXPORTER", "none")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides BD_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BD_SERVICE_NAME", name)
	return e
}

// HealthPath overrides BD_HEALTH_PATH.
func (e *Env) HealthPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BD_HEALTH_PATH", path)
	return e
}

// GlobalResponseHeaders overrides BD_GLOBAL_RESPONSE_HEADERS.
func (e *Env) GlobalResponseHeaders(headers string) *Env {
	e.t.Helper()
	e.t.Setenv("BD_GLOBAL_RESPONSE_HEADERS", headers)
	return e
}

// DebugMode overrides BD_DEBUG_MODE.
func (e *Env) DebugMode(v bool) *Env {
	e.t.Helper()
	e.t.Setenv("BD_DEBUG_MODE", strconv.FormatBool(v))
	return e
}

// HTMLErrorPageCodes overrides BD_HTML_ERROR_PAGE_CODES.
func (e *Env) HTMLErrorPageCodes(expr string) *Env {
	e.t.Helper()
	e.t.Setenv("BD_HTML_ERROR_PAGE_CODES", expr)
	return e
}

// BatchConcurrency overrides BD_BATCH_CONCURRENCY.
func (e *Env) BatchConcurrency(n int) *Env {
	e.t.Helper()
	e.t.Setenv("BD_BATCH_CONCURRENCY", strconv.Itoa(n))
	return e
}
