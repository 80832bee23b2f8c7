// Package delegate bridges native document events into the event bus.
//
// An Engine keeps one capture listener per native event name on its
// document. Every occurrence becomes an emission of "UI:<name>" whose
// subscribers are filtered by CSS selector, ordered deepest node first and
// run with DOM-style propagation control:
//
//	bus.Before("click", func(ctx context.Context, e *event.Object) error {
//		menu := e.Target.(*dom.Node) // the node that matched "#menu li"
//		...
//		return delegate.StopPropagation(e)
//	}, event.WithSelector("#menu li"))
//
// Selector subscribers see Target set to the node their selector matched;
// SourceTarget keeps the node the event was fired at. CurrentTarget is
// the node a subscriber is invoked at. Selectors anchored on an id
// ("#menu li") are delegated from that element, which may be added to the
// document after subscribing.
//
// Before subscribers run synchronously inside the native dispatch, so a
// halt or prevented default is carried back to the native event. After
// subscribers run on the bus's deferred queue once the document's default
// action finished. The outermost dispatch waits for them, so occurrences
// never overlap.
//
// Subscribing to "clickoutside" delivers clicks that happened outside the
// subscriber's selector.
package delegate
