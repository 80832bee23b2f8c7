package event

import (
	"sync/atomic"

	"github.com/dshills/uidelegate/internal/event/topic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateDetached means the subscription has been permanently removed.
	SubscriptionStateDetached
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Selector restricts delivery to events whose target matches a CSS
	// selector. It is compiled by the bus's SelectorCompiler.
	Selector string

	// Filter is an optional predicate over the payload.
	Filter Filter

	// Context is exposed to the handler as Object.Context.
	Context any

	// Prepend places the subscription before existing ones of its phase.
	Prepend bool

	// Once detaches the subscription after its first invocation.
	Once bool
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithSelector delegates the subscription to nodes matching selector.
func WithSelector(selector string) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Selector = selector
	}
}

// WithFilter sets a predicate filter.
func WithFilter(f Filter) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithPredicate sets a predicate filter from a function.
func WithPredicate(fn func(payload any) bool) SubscriptionOption {
	return WithFilter(FilterFunc(fn))
}

// WithContext sets the receiver value exposed as Object.Context.
func WithContext(ctx any) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Context = ctx
	}
}

// WithPrepend runs the subscription before existing ones.
func WithPrepend() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Prepend = true
	}
}

// WithOnce sets the subscription to detach after the first event.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// Subscriber is one subscription record. Fields are fixed once the
// subscription is registered.
type Subscriber struct {
	// ID is the unique subscription identifier.
	ID string

	// Topic is the subscribed topic, possibly a wildcard class.
	Topic topic.Topic

	// Phase is the phase the subscriber runs in.
	Phase Phase

	// Handler is invoked with the event object.
	Handler Handler

	// Context is exposed to the handler as Object.Context.
	Context any

	// Selector is the raw selector, empty for undelegated subscriptions.
	Selector string

	// Filter is nil (match everything), a user predicate or a compiled
	// selector filter.
	Filter Filter

	// Prepend and Once mirror the subscription options.
	Prepend bool
	Once    bool

	state atomic.Int32
}

func newSubscriber(id string, t topic.Topic, phase Phase, h Handler, config SubscriptionConfig) *Subscriber {
	s := &Subscriber{
		ID:       id,
		Topic:    t,
		Phase:    phase,
		Handler:  h,
		Context:  config.Context,
		Selector: config.Selector,
		Filter:   config.Filter,
		Prepend:  config.Prepend,
		Once:     config.Once,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

// State returns the current subscription state.
func (s *Subscriber) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription receives events.
func (s *Subscriber) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// IsDetached returns true once the subscription was removed.
func (s *Subscriber) IsDetached() bool {
	return s.State() == SubscriptionStateDetached
}

// Pause temporarily stops event delivery.
func (s *Subscriber) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume restarts event delivery.
func (s *Subscriber) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

// detach marks the subscription removed. It reports whether this call
// made the transition.
func (s *Subscriber) detach() bool {
	return SubscriptionState(s.state.Swap(int32(SubscriptionStateDetached))) != SubscriptionStateDetached
}

// Accepts reports whether the subscriber is active and its filter, if
// any, accepts payload.
func (s *Subscriber) Accepts(payload any) bool {
	if !s.IsActive() {
		return false
	}
	return s.Filter == nil || s.Filter.Match(payload)
}
