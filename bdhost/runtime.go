package bdhost

import "github.com/advdv/bdispatch"

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
type Runtime[E Environment] struct {
	env  E
	host *bdispatch.Host
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, host *bdispatch.Host) *Runtime[E] {
	return &Runtime[E]{env: env, host: host}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Writer returns the result writer, for handlers that write results to the sink themselves.
func (r *Runtime[E]) Writer() *bdispatch.Writer {
	return r.host.Writer()
}
