package delegate

import (
	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/event"
)

// DefaultOutsideSuffix marks outside topics: "clickoutside" fires for
// clicks that did not happen inside the subscriber's selector.
const DefaultOutsideSuffix = "outside"

// Option configures an Engine.
type Option func(*config)

type config struct {
	emitter     string
	suffix      string
	unsupported map[string]bool
	logger      zerolog.Logger
}

func defaultConfig() config {
	return config{
		emitter: event.DefaultEmitter,
		suffix:  DefaultOutsideSuffix,
		unsupported: map[string]bool{
			"mouseenter": true,
			"mouseleave": true,
		},
		logger: zerolog.Nop(),
	}
}

// WithEmitter sets the emitter name native events are published under.
func WithEmitter(name string) Option {
	return func(c *config) {
		if name != "" {
			c.emitter = name
		}
	}
}

// WithOutsideSuffix sets the suffix of outside topics.
func WithOutsideSuffix(suffix string) Option {
	return func(c *config) {
		if suffix != "" {
			c.suffix = suffix
		}
	}
}

// WithUnsupportedEvents replaces the set of native event names that never
// get a listener.
func WithUnsupportedEvents(names ...string) Option {
	return func(c *config) {
		c.unsupported = make(map[string]bool, len(names))
		for _, name := range names {
			c.unsupported[name] = true
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
