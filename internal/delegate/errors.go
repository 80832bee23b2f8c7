package delegate

import "errors"

// Sentinel errors for the delegate package.
var (
	// ErrUnsupportedEvent is returned for native event names the engine
	// refuses to listen to, such as mouseenter.
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrClosed is returned by an engine after Close.
	ErrClosed = errors.New("delegate engine closed")

	// ErrNilDocument is returned by New without a document.
	ErrNilDocument = errors.New("nil document")

	// ErrNilBus is returned by New without a bus.
	ErrNilBus = errors.New("nil bus")
)
