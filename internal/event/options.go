package event

import (
	"time"

	"github.com/rs/zerolog"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// queueSize is the size of the deferred task queue.
	queueSize int

	// handlerTimeout bounds every subscriber invocation. Zero disables it.
	handlerTimeout time.Duration

	// defaultEmitter is used for topics given without an emitter.
	defaultEmitter string

	// panicHandler is called when a subscriber panics.
	panicHandler PanicHandler

	logger zerolog.Logger
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		queueSize:      1024,
		defaultEmitter: DefaultEmitter,
		panicHandler:   DefaultPanicHandler,
		logger:         zerolog.Nop(),
	}
}

// WithQueueSize sets the deferred task queue size.
func WithQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithHandlerTimeout bounds subscriber invocations with a context deadline.
func WithHandlerTimeout(timeout time.Duration) BusOption {
	return func(c *busConfig) {
		c.handlerTimeout = timeout
	}
}

// WithDefaultEmitter sets the emitter assumed for bare event names.
func WithDefaultEmitter(name string) BusOption {
	return func(c *busConfig) {
		if name != "" {
			c.defaultEmitter = name
		}
	}
}

// WithBusPanicHandler sets the panic handler for the bus.
func WithBusPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}

// WithLogger sets the logger for the bus.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}
