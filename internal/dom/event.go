package dom

// Event is a native input event fired at a node.
type Event struct {
	typ    string
	target *Node

	// Detail carries event specific data such as a key name.
	Detail any

	propagationStopped bool
	immediateStopped   bool
	defaultPrevented   bool

	afterDefault []func()
}

// NewEvent creates an event of the given type targeted at target.
func NewEvent(eventType string, target *Node) *Event {
	return &Event{typ: eventType, target: target}
}

// Type returns the event type, for example "click".
func (e *Event) Type() string {
	return e.typ
}

// Target returns the deepest node the event was fired at.
func (e *Event) Target() *Node {
	return e.target
}

// StopPropagation stops the event from reaching further nodes.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// StopImmediatePropagation also skips the remaining listeners.
func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediateStopped = true
}

// PreventDefault suppresses the default action.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.propagationStopped
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// AfterDefault queues fn to run once dispatch finished, after the default
// action. Outside a dispatch fn never runs.
func (e *Event) AfterDefault(fn func()) {
	if fn != nil {
		e.afterDefault = append(e.afterDefault, fn)
	}
}
