package condition

import "github.com/baxromumarov/lifebound"

type binderConfig struct {
	reporter lifebound.Reporter
	pause    []lifebound.PauseOption
}

// Option configures the condition binders.
type Option func(*binderConfig)

func newBinderConfig(opts []Option) binderConfig {
	cfg := binderConfig{reporter: lifebound.SlogReporter(nil)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithReporter routes the warning reported for a missing router or
// visibility source to r. It panics if r is nil.
func WithReporter(r lifebound.Reporter) Option {
	if r == nil {
		panic("condition: WithReporter requires non-nil reporter")
	}
	return func(c *binderConfig) {
		c.reporter = r
	}
}

// WithBuffer makes [PauseWhileHidden] keep the latest n values while
// hidden; see [lifebound.WithBuffer]. Other binders ignore it.
func WithBuffer(n int) Option {
	opt := lifebound.WithBuffer(n)
	return func(c *binderConfig) {
		c.pause = append(c.pause, opt)
	}
}
