// Package event provides the publish/subscribe bus that delegated UI
// events are delivered through.
//
// # Architecture
//
//	                    ┌──────────────────────────────────────────┐
//	                    │               Event Bus                  │
//	                    │  - Subscriber registry                   │
//	                    │  - Before / after phases                 │
//	                    │  - Deferred task queue                   │
//	                    └──────────────────────────────────────────┘
//	                                      │
//	          ┌───────────────────────────┼───────────────────────────┐
//	          ▼                           ▼                           ▼
//	┌─────────────────┐         ┌─────────────────┐         ┌─────────────────┐
//	│    Registry     │         │  Event Object   │         │    Notifiers    │
//	│  - per topic    │         │  - Status       │         │  - subscribe /  │
//	│    and phase    │         │  - operations   │         │    detach hooks │
//	└─────────────────┘         └─────────────────┘         └─────────────────┘
//
// # Topics
//
// Topics have the form "emitter:name". A bare name is attributed to the
// "UI" emitter, so "click" and "UI:click" are the same topic. Emitting
// "UI:click" reaches the subscribers of "UI:click", "*:click", "UI:*" and
// "*:*", in that order.
//
// # Phases
//
// Before subscribers run synchronously in the emitting call. Any of them
// may call Halt, which ends the phase, or PreventDefault, which lets the
// remaining before subscribers run. When the status is still ok the
// topic's default function runs, followed by the after subscribers.
//
//	bus := event.NewBus()
//	bus.Before("click", func(ctx context.Context, e *event.Object) error {
//	    e.PreventDefault()
//	    return nil
//	})
//	e := bus.Emit(ctx, target, "click", payload)
//	if !e.Status.OK() {
//	    // default suppressed
//	}
//
// # Driving emissions externally
//
// EmitWith runs a caller-ordered list of subscribers with a Hook consulted
// before each one; the hook can skip a subscriber or abort the phase. A
// later EmitWith can continue the same event object, which is how the
// delegation layer runs its after pass on the deferred queue (Defer) with
// the status of the before pass.
//
// # Extension points
//
//   - DefineOperation adds named operations callable as e.Call(name).
//   - SetSelectorCompiler compiles WithSelector subscriptions into filters.
//   - Notify reports subscriptions and detaches for overlapping topics.
//   - DefineEvent attaches default and prevented functions to a topic.
//
// # Error Handling
//
// Subscriber errors are wrapped in *HandlerError and panics are recovered
// into *PanicError; both are joined into Object.Err and never stop the
// remaining subscribers.
package event
