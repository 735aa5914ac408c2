package lifebound

type config struct {
	reporter Reporter
	name     string
}

// Option configures an [Owner], [Registry] or [Coordinator].
type Option func(*config)

func defaultConfig() config {
	return config{
		reporter: SlogReporter(nil),
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithReporter routes policy warnings to r instead of the default slog
// logger. It panics if r is nil.
func WithReporter(r Reporter) Option {
	if r == nil {
		panic("lifebound: WithReporter requires non-nil reporter")
	}
	return func(c *config) {
		c.reporter = r
	}
}

// WithName labels a [Registry] or [Coordinator] in warnings. An [Owner]
// passes its own name to its registry.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
