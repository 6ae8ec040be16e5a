package autogen

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithFoulOffset sets how long after a foul the awarded kickout is timed.
func WithFoulOffset(seconds float64) Option {
	return func(g *Generator) {
		if seconds > 0 {
			g.foulOffset = seconds
		}
	}
}

// WithIDFunc overrides event id generation. Tests use it for stable ids.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) {
		if fn != nil {
			g.newID = fn
		}
	}
}
