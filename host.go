package bdispatch

// Host bundles what endpoints need while serving: configuration, content negotiation, the writer and the global
// filters.
type Host struct {
	cfg     *Config
	types   Negotiator
	logs    Logger
	writer  *Writer
	filters Filters
}

type hostOpts struct {
	types   Negotiator
	filters Filters
	wopts   []WriterOption
}

// HostOption configures the [Host].
type HostOption func(*hostOpts)

// WithNegotiator replaces the default content types.
func WithNegotiator(n Negotiator) HostOption {
	return func(o *hostOpts) { o.types = n }
}

// WithRequestFilter adds a global request filter. It runs for every request DTO, including every batch element.
func WithRequestFilter(f RequestFilter) HostOption {
	return func(o *hostOpts) { o.filters.Request = append(o.filters.Request, f) }
}

// WithResponseFilter adds a global response filter. It runs for every response DTO, including every batch
// element.
func WithResponseFilter(f ResponseFilter) HostOption {
	return func(o *hostOpts) { o.filters.Response = append(o.filters.Response, f) }
}

// WithWriterOptions passes options to the [Writer].
func WithWriterOptions(opts ...WriterOption) HostOption {
	return func(o *hostOpts) { o.wopts = append(o.wopts, opts...) }
}

// NewHost inits the host.
func NewHost(cfg *Config, logs Logger, opts ...HostOption) *Host {
	var o hostOpts
	for _, opt := range opts {
		opt(&o)
	}

	if o.types == nil {
		o.types = NewContentTypes(cfg.DefaultContentType())
	}

	return &Host{
		cfg:     cfg,
		types:   o.types,
		logs:    logs,
		writer:  NewWriter(cfg, o.types, logs, o.wopts...),
		filters: o.filters,
	}
}

// Config returns the configuration.
func (h *Host) Config() *Config { return h.cfg }

// Writer returns the writer.
func (h *Host) Writer() *Writer { return h.writer }

// Negotiator returns the content negotiator.
func (h *Host) Negotiator() Negotiator { return h.types }
