package event

import (
	"context"

	"github.com/dshills/uidelegate/internal/event/topic"
)

// DefaultEmitter is the emitter assumed for topics given without one
// ("click" means "UI:click").
const DefaultEmitter = "UI"

// Phase determines when a subscriber runs relative to the default action.
type Phase int

const (
	// PhaseBefore subscribers run synchronously while the event can still
	// be halted or have its default prevented.
	PhaseBefore Phase = iota

	// PhaseAfter subscribers run once the before phase finished with an
	// ok status.
	PhaseAfter
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Handler is the interface for event subscribers.
type Handler interface {
	// Handle processes an event. Mutations of e are visible to the
	// subscribers that run after it.
	Handle(ctx context.Context, e *Object) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, e *Object) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, e *Object) error {
	return f(ctx, e)
}

// Emitter is implemented by emission sources that name their own emitter.
// Document nodes report "UI".
type Emitter interface {
	EmitterName() string
}

// Operation is a named action callable on every event object, such as
// "stopPropagation". Operations are registered with Bus.DefineOperation.
type Operation func(e *Object) error

// Definition configures the default behaviour of a published topic.
type Definition struct {
	// DefaultFn runs after the before phase when the status is ok.
	DefaultFn func(ctx context.Context, e *Object)

	// PreventedFn runs instead of DefaultFn when the default was prevented.
	PreventedFn func(ctx context.Context, e *Object)
}

// SelectorCompiler turns the raw selector of a subscription into a Filter.
// The delegation layer installs one with Bus.SetSelectorCompiler.
type SelectorCompiler interface {
	CompileSelector(sub *Subscriber) (Filter, error)
}

// Notifier receives subscription lifecycle callbacks for topics that
// overlap the pattern it was registered with.
type Notifier struct {
	OnSubscribe func(sub *Subscriber)
	OnDetach    func(sub *Subscriber)
}

// Verdict is returned by a Hook to steer one subscriber invocation.
type Verdict int

const (
	// Invoke runs the subscriber.
	Invoke Verdict = iota

	// Skip passes over the subscriber and continues with the next one.
	Skip

	// Abort passes over the subscriber and ends the phase.
	Abort
)

// String returns a human-readable verdict name.
func (v Verdict) String() string {
	switch v {
	case Invoke:
		return "invoke"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Hook runs before each subscriber of an emission.
type Hook func(e *Object, sub *Subscriber) Verdict

// Emission describes one explicit emission pass driven by the caller.
type Emission struct {
	// Target is the node the event was fired at.
	Target any

	// Topic is the emitted topic. Bare names use DefaultEmitter.
	Topic topic.Topic

	// Payload is the event data, typically the native event.
	Payload any

	// Phase is the phase the subscribers are run as.
	Phase Phase

	// Subscribers are run in the given order. The registry is not consulted.
	Subscribers []*Subscriber

	// Hook, if set, is consulted before every subscriber.
	Hook Hook

	// Object continues an earlier emission: its status and target state
	// are reused and Target, Topic and Payload are ignored.
	Object *Object
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsEmitted is the total number of emissions.
	EventsEmitted uint64

	// HandlersExecuted is the total number of subscriber invocations.
	HandlersExecuted uint64

	// HandlersSkipped is the number of subscribers passed over by hooks.
	HandlersSkipped uint64

	// HandlerErrors is the number of subscribers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of subscribers that panicked.
	HandlerPanics uint64

	// TasksDeferred is the number of tasks accepted by Defer.
	TasksDeferred uint64

	// TasksDropped is the number of tasks Defer could not queue.
	TasksDropped uint64

	// AvgDeliveryTimeNs is the average subscriber run time in nanoseconds.
	AvgDeliveryTimeNs int64

	// ActiveSubscribers is the current number of subscriptions.
	ActiveSubscribers int

	// QueueDepth is the current deferred queue depth.
	QueueDepth int
}

// PanicHandler is called when a subscriber panics.
type PanicHandler func(e *Object, sub *Subscriber, recovered any)

// DefaultPanicHandler ignores panics. They are still recorded in Object.Err
// and logged by the bus.
func DefaultPanicHandler(e *Object, sub *Subscriber, recovered any) {}
