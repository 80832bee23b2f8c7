package event

import (
	"errors"
	"sync"

	"github.com/dshills/uidelegate/internal/event/topic"
)

// ErrGroupClosed is returned when subscribing through a closed Group.
var ErrGroupClosed = errors.New("subscription group is closed")

// Group tracks the subscriptions made through it so they can be detached
// together, typically when the owning widget goes away.
type Group struct {
	bus  Bus
	mu   sync.Mutex
	subs []*Subscriber

	closed bool
}

// NewGroup creates a new Group on bus.
func NewGroup(bus Bus) *Group {
	return &Group{bus: bus}
}

// Before subscribes fn to the before phase of t.
func (g *Group) Before(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	return g.track(g.bus.Before(t, fn, opts...))
}

// After subscribes fn to the after phase of t.
func (g *Group) After(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	return g.track(g.bus.After(t, fn, opts...))
}

// Delegate subscribes fn to the before phase of t for targets matching
// selector.
func (g *Group) Delegate(t topic.Topic, selector string, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	opts = append(opts, WithSelector(selector))
	return g.Before(t, fn, opts...)
}

// Once subscribes fn to the before phase of t for a single invocation.
func (g *Group) Once(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	opts = append(opts, WithOnce())
	return g.Before(t, fn, opts...)
}

func (g *Group) track(sub *Subscriber, err error) (*Subscriber, error) {
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		_ = g.bus.Detach(sub)
		return nil, ErrGroupClosed
	}
	g.subs = append(g.subs, sub)
	return sub, nil
}

// Detach removes a single subscription of the group.
func (g *Group) Detach(sub *Subscriber) error {
	g.mu.Lock()
	for i, tracked := range g.subs {
		if tracked == sub {
			g.subs = append(g.subs[:i], g.subs[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	return g.bus.Detach(sub)
}

// Len returns the number of live subscriptions in the group.
// Once subscriptions that already fired are not counted.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, sub := range g.subs {
		if !sub.IsDetached() {
			n++
		}
	}
	return n
}

// Close detaches every subscription and rejects further ones.
func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.closed = true
	g.mu.Unlock()

	for _, sub := range subs {
		_ = g.bus.Detach(sub)
	}
}
