package delegate

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
	"github.com/dshills/uidelegate/internal/event/topic"
)

// Document is the document an Engine listens on.
type Document interface {
	Root() *dom.Node
	GetElementByID(id string) *dom.Node
	AddCaptureListener(eventType string, fn dom.Listener) dom.ListenerID
	RemoveCaptureListener(eventType string, id dom.ListenerID) bool
}

type propagationStopper interface {
	StopPropagation()
}

type defaultPreventer interface {
	PreventDefault()
}

type afterDefaulter interface {
	AfterDefault(fn func())
}

// Outcome holds the event objects of one dispatch. Outside is nil when no
// outside subscription exists for the event.
type Outcome struct {
	Event   *event.Object
	Outside *event.Object
}

// Stats contains engine statistics.
type Stats struct {
	Dispatched     uint64
	AfterScheduled uint64
	Listeners      int
	Subscriptions  int
}

// Engine delegates native events of one document to bus subscribers.
// It keeps a single capture listener per event name and rebuilds the
// bubble path from the event target for every dispatch.
type Engine struct {
	bus    event.Bus
	doc    Document
	config config
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[string]*listener
	held      map[string]holding
	outside   map[string]int
	closed    bool

	stopNotify func()

	// turn serializes dispatches with the after phases they schedule.
	turn turn

	dispatched     atomic.Uint64
	afterScheduled atomic.Uint64
}

// holding records the listener reference taken for a subscription.
type holding struct {
	raw     string
	outside bool
}

// New creates an engine bridging doc to bus. It registers the emitter and
// the propagation operations with the bus and becomes its selector
// compiler. Subscriptions that already exist get their listeners at once.
func New(bus event.Bus, doc Document, opts ...Option) (*Engine, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	if doc == nil {
		return nil, ErrNilDocument
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		bus:       bus,
		doc:       doc,
		config:    cfg,
		log:       cfg.logger.With().Str("component", "delegate").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[string]*listener),
		held:      make(map[string]holding),
		outside:   make(map[string]int),
	}

	if err := bus.DefineEmitter(cfg.emitter); err != nil {
		cancel()
		return nil, err
	}
	bus.DefineOperation(OpStopPropagation, stopPropagation)
	bus.DefineOperation(OpStopImmediatePropagation, stopImmediatePropagation)
	bus.SetSelectorCompiler(e)

	e.stopNotify = bus.Notify(topic.New(cfg.emitter, topic.Wildcard), event.Notifier{
		OnSubscribe: e.onSubscribe,
		OnDetach:    e.onDetach,
	})
	return e, nil
}

// CompileSelector implements event.SelectorCompiler. Subscriptions to
// outside topics get inverted filters.
func (e *Engine) CompileSelector(sub *event.Subscriber) (event.Filter, error) {
	f := NewFilter(sub.Selector, sub.Topic.HasSuffix(e.config.suffix))
	f.user = sub.Filter
	if err := f.Compile(); err != nil {
		return nil, err
	}
	return f, nil
}

// Topic returns the topic native events named raw are published under.
func (e *Engine) Topic(raw string) topic.Topic {
	return topic.New(e.config.emitter, raw)
}

// Dispatch publishes one native occurrence of raw. Before subscribers run
// synchronously; when they leave the event ok the after subscribers are
// handed to the bus's deferred queue. Dispatch returns once they ran, so
// the next occurrence never overlaps them. Engines expect their events
// from a single goroutine.
func (e *Engine) Dispatch(ctx context.Context, raw string, ev NativeEvent) Outcome {
	return e.dispatch(ctx, raw, ev, false)
}

// DispatchNative is Dispatch for sources that deliver events without a
// capture listener. The raw name is the event type.
func (e *Engine) DispatchNative(ctx context.Context, ev NativeEvent) Outcome {
	return e.dispatch(ctx, ev.Type(), ev, false)
}

func (e *Engine) dispatch(ctx context.Context, raw string, ev NativeEvent, fromListener bool) Outcome {
	e.dispatched.Add(1)

	outermost := !e.turn.nested()
	e.turn.enter()
	var out Outcome
	out.Event = e.pass(ctx, e.Topic(raw), ev, true, fromListener)
	if e.hasOutside(raw) {
		out.Outside = e.pass(ctx, e.OutsideTopic(raw), ev, false, fromListener)
	}
	e.turn.leave()

	if outermost {
		// Listener dispatches settle once the document ran its default
		// action and queued the after phases.
		if ad, ok := ev.(afterDefaulter); ok && fromListener {
			ad.AfterDefault(func() { e.settle(ctx) })
		} else {
			e.settle(ctx)
		}
	}
	return out
}

// pass runs the before phase of t and schedules its after phase. Only the
// primary pass reconciles the native event.
func (e *Engine) pass(ctx context.Context, t topic.Topic, ev NativeEvent, primary, fromListener bool) *event.Object {
	before := e.candidates(e.gather(t, event.PhaseBefore, primary), ev)
	e.log.Debug().
		Str("topic", string(t)).
		Stringer("target", ev.Target()).
		Int("subscribers", len(before)).
		Msg("dispatch")

	obj := e.bus.EmitWith(ctx, event.Emission{
		Target:      ev.Target(),
		Topic:       t,
		Payload:     ev,
		Phase:       event.PhaseBefore,
		Subscribers: subscribers(before),
		Hook:        newGate(before).hook,
	})

	if primary {
		reconcile(obj, ev)
	}
	if !obj.Status.OK() {
		return obj
	}

	after := e.candidates(e.gather(t, event.PhaseAfter, primary), ev)
	if len(after) == 0 {
		return obj
	}
	e.scheduleAfter(ctx, obj, after, ev, fromListener)
	return obj
}

// gather returns the subscribers of t for one phase. The outside pass keeps
// only outside subscriptions.
func (e *Engine) gather(t topic.Topic, phase event.Phase, primary bool) []*event.Subscriber {
	subs := e.bus.Gather(t, phase)
	if primary {
		return subs
	}
	return e.outsideOnly(subs)
}

// reconcile carries a halt or prevented default back to the native event.
func reconcile(obj *event.Object, ev NativeEvent) {
	if obj.Status.Halted {
		if s, ok := ev.(propagationStopper); ok {
			s.StopPropagation()
		}
	}
	if obj.Status.Halted || obj.Status.DefaultPrevented {
		if p, ok := ev.(defaultPreventer); ok {
			p.PreventDefault()
		}
	}
}

// scheduleAfter queues the after phase. Events delivered by a capture
// listener queue it once the document ran its default action.
func (e *Engine) scheduleAfter(ctx context.Context, obj *event.Object, after []*candidate, ev NativeEvent, fromListener bool) {
	task := func(ctx context.Context) error {
		defer e.turn.done()
		e.turn.enter()
		defer e.turn.leave()

		e.bus.EmitWith(ctx, event.Emission{
			Phase:       event.PhaseAfter,
			Subscribers: subscribers(after),
			Hook:        newGate(after).hook,
			Object:      obj,
		})
		return nil
	}

	enqueue := func() {
		e.afterScheduled.Add(1)
		e.turn.schedule()
		if err := e.bus.Defer(ctx, task); err != nil {
			e.log.Warn().Err(err).Str("topic", string(obj.Topic)).Msg("after phase runs inline")
			_ = task(ctx)
		}
	}

	if ad, ok := ev.(afterDefaulter); ok && fromListener {
		ad.AfterDefault(enqueue)
		return
	}
	enqueue()
}

// settle waits until the after phases scheduled so far have run. Only the
// outermost dispatch settles; subscribers dispatching events of their own
// run nested and leave the wait to it.
func (e *Engine) settle(ctx context.Context) {
	idle := e.turn.idle()
	if idle == nil {
		return
	}
	select {
	case <-idle:
	case <-ctx.Done():
	case <-e.ctx.Done():
	}
}

// candidates filters subs against ev, resolves their nodes and sorts them
// deepest node first. Subscriptions anchored on an id that is not in the
// document are left out.
func (e *Engine) candidates(subs []*event.Subscriber, ev NativeEvent) []*candidate {
	out := make([]*candidate, 0, len(subs))
	for _, sub := range subs {
		c := &candidate{sub: sub}
		switch f := sub.Filter.(type) {
		case nil:
			c.container = e.doc.Root()
		case *Filter:
			ok, node := f.Resolve(ev)
			if !ok {
				continue
			}
			c.target = node
			c.container = f.Container(e.doc)
			if c.container == nil {
				continue
			}
		default:
			if !f.Match(ev) {
				continue
			}
			c.container = e.doc.Root()
		}
		c.depth = c.node().Depth()
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

// sortCandidates orders candidates in bubble order: deeper nodes first,
// subscription order among equals.
func sortCandidates(cands []*candidate) {
	slices.SortStableFunc(cands, func(a, b *candidate) int {
		return b.depth - a.depth
	})
}

func subscribers(cands []*candidate) []*event.Subscriber {
	subs := make([]*event.Subscriber, len(cands))
	for i, c := range cands {
		subs[i] = c.sub
	}
	return subs
}

// Close removes every capture listener and detaches the engine from the
// bus. Existing subscriptions keep their compiled filters.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	for raw, l := range e.listeners {
		e.doc.RemoveCaptureListener(raw, l.id)
	}
	e.listeners = make(map[string]*listener)
	e.held = make(map[string]holding)
	e.outside = make(map[string]int)
	e.mu.Unlock()

	e.stopNotify()
	e.bus.SetSelectorCompiler(nil)
	e.cancel()
	return nil
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Dispatched:     e.dispatched.Load(),
		AfterScheduled: e.afterScheduled.Load(),
		Listeners:      len(e.listeners),
		Subscriptions:  len(e.held),
	}
}
