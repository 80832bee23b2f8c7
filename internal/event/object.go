package event

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/uidelegate/internal/event/topic"
)

// Status is the mutable outcome of an emission, shared by its before and
// after phases.
type Status struct {
	// Halted is set by Object.Halt.
	Halted bool

	// DefaultPrevented is set by Object.PreventDefault.
	DefaultPrevented bool

	// RenderPrevented is set by Object.PreventRender.
	RenderPrevented bool

	// DefaultFn is true once the topic's default function ran.
	DefaultFn bool

	// PreventedFn is true once the topic's prevented function ran.
	PreventedFn bool

	// PropagationStopped holds the node at which stopPropagation was called.
	PropagationStopped any

	// ImmediatePropagationStopped holds the node at which
	// stopImmediatePropagation was called.
	ImmediatePropagationStopped any
}

// OK reports whether the event was neither halted nor default-prevented.
func (s *Status) OK() bool {
	return !s.Halted && !s.DefaultPrevented
}

// Object is the event object handed to every subscriber of one emission.
type Object struct {
	// ID identifies the emission.
	ID string

	// Topic is the emitted topic.
	Topic topic.Topic

	// Emitter is the name of the emitting source.
	Emitter string

	// Target is the node the event applies to. Delegated dispatch points it
	// at the node that matched the running subscriber's selector.
	Target any

	// CurrentTarget is the effective node of the running subscriber.
	CurrentTarget any

	// SourceTarget is the original target, recorded the first time Target
	// is overridden.
	SourceTarget any

	// Payload is the event data. Subscribers may mutate it.
	Payload any

	// Context is the receiver value of the running subscriber.
	Context any

	// Subscriber is the running subscriber.
	Subscriber *Subscriber

	// Status is shared by both phases.
	Status *Status

	// Err joins the errors returned by subscribers.
	Err error

	ops map[string]Operation
}

func newObject(t topic.Topic, target, payload any, ops map[string]Operation) *Object {
	emitter := t.Emitter()
	if em, ok := target.(Emitter); ok && emitter == "" {
		emitter = em.EmitterName()
	}
	return &Object{
		ID:      uuid.NewString(),
		Topic:   t,
		Emitter: emitter,
		Target:  target,
		Payload: payload,
		Status:  &Status{},
		ops:     ops,
	}
}

// Halt stops the remaining subscribers of the running phase and
// suppresses the after phase.
func (e *Object) Halt() {
	e.Status.Halted = true
}

// PreventDefault suppresses the default function and the after phase.
// Remaining before subscribers still run.
func (e *Object) PreventDefault() {
	e.Status.DefaultPrevented = true
}

// PreventRender flags that the event should not trigger a render.
func (e *Object) PreventRender() {
	e.Status.RenderPrevented = true
}

// OverrideTarget points Target at node, remembering the original target
// the first time.
func (e *Object) OverrideTarget(node any) {
	if e.SourceTarget == nil {
		e.SourceTarget = e.Target
	}
	e.Target = node
}

// RestoreTarget resets Target to SourceTarget after an override.
func (e *Object) RestoreTarget() {
	if e.SourceTarget != nil {
		e.Target = e.SourceTarget
	}
}

// Call runs the named operation on the event.
func (e *Object) Call(name string) error {
	op, ok := e.ops[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op(e)
}

// HasOperation reports whether the named operation is available.
func (e *Object) HasOperation(name string) bool {
	_, ok := e.ops[name]
	return ok
}

func (e *Object) addErr(err error) {
	e.Err = errors.Join(e.Err, err)
}
