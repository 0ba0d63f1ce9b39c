// Package bdhosttest provides test helpers for bdhost applications.
//
// It constructs the identical DI graph as [bdhost.NewApp] but uses
// [fxtest.App] which fails the test immediately on DI errors.
//
// Example:
//
//	bdhosttest.SetBaseEnv(t, 18081)
//	app := bdhosttest.New[TestEnv](t, routing)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bdhosttest

import (
	"testing"

	"github.com/advdv/bdispatch/bdhost"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing bdhost applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [bdhost.NewApp].
func New[E bdhost.Environment](t testing.TB, routing any, opts ...bdhost.Option) *App {
	return &App{App: fxtest.New(t, bdhost.FxOptions[E](routing, opts...)...)}
}
