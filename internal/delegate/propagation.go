package delegate

import (
	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
)

// Names of the propagation operations defined on every event object.
const (
	OpStopPropagation          = "stopPropagation"
	OpStopImmediatePropagation = "stopImmediatePropagation"
)

// candidate is a subscriber that passed the filter of one dispatch pass.
type candidate struct {
	sub *event.Subscriber

	// target is the node the selector matched, nil for predicate filters
	// and outside subscriptions.
	target *dom.Node

	// container is the node the subscription is delegated from.
	container *dom.Node

	depth int
}

// node returns the node the subscriber is invoked at.
func (c *candidate) node() *dom.Node {
	if c.target != nil {
		return c.target
	}
	return c.container
}

// gate decides, before each subscriber of a pass, whether earlier stop
// calls exclude it, and points the event at the subscriber's nodes.
type gate struct {
	candidates map[*event.Subscriber]*candidate
}

func newGate(cands []*candidate) *gate {
	g := &gate{candidates: make(map[*event.Subscriber]*candidate, len(cands))}
	for _, c := range cands {
		g.candidates[c.sub] = c
	}
	return g
}

// hook implements event.Hook.
func (g *gate) hook(e *event.Object, sub *event.Subscriber) event.Verdict {
	c, ok := g.candidates[sub]
	if !ok {
		return event.Skip
	}
	n := c.node()

	if stopped := stoppedNode(e.Status.ImmediatePropagationStopped); stopped != nil {
		if n == stopped || !stopped.Contains(n) {
			return event.Abort
		}
	}
	if stopped := stoppedNode(e.Status.PropagationStopped); stopped != nil {
		if n != stopped && !stopped.Contains(n) {
			return event.Skip
		}
	}

	e.CurrentTarget = n
	if c.target != nil {
		e.OverrideTarget(c.target)
	} else {
		e.RestoreTarget()
	}
	return event.Invoke
}

func stoppedNode(v any) *dom.Node {
	n, _ := v.(*dom.Node)
	return n
}

// stopPropagation records the running subscriber's node: subscribers at
// nodes outside it are skipped for the rest of the dispatch, both phases.
func stopPropagation(e *event.Object) error {
	if e.Status.OK() {
		e.Status.PropagationStopped = e.CurrentTarget
	}
	return nil
}

// stopImmediatePropagation records the running subscriber's node and ends
// the pass at the next subscriber at that node or outside it.
func stopImmediatePropagation(e *event.Object) error {
	if e.Status.OK() {
		e.Status.ImmediatePropagationStopped = e.CurrentTarget
	}
	return nil
}

// StopPropagation stops a delegated event from reaching subscribers at
// nodes that do not lie within the current one.
func StopPropagation(e *event.Object) error {
	return e.Call(OpStopPropagation)
}

// StopImmediatePropagation is StopPropagation that also skips the
// remaining subscribers at the current node.
func StopImmediatePropagation(e *event.Object) error {
	return e.Call(OpStopImmediatePropagation)
}
