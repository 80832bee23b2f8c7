package event

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/event/dispatch"
	"github.com/dshills/uidelegate/internal/event/topic"
)

// Bus is the central event bus interface.
type Bus interface {
	// Subscription
	Subscribe(t topic.Topic, phase Phase, handler Handler, opts ...SubscriptionOption) (*Subscriber, error)
	Before(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error)
	After(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error)
	Detach(sub *Subscriber) error
	DetachAll(t topic.Topic) int
	Notify(pattern topic.Topic, n Notifier) (cancel func())
	Gather(t topic.Topic, phase Phase) []*Subscriber

	// Emission
	Emit(ctx context.Context, target any, t topic.Topic, payload any) *Object
	EmitWith(ctx context.Context, em Emission) *Object
	Defer(ctx context.Context, task dispatch.Task) error

	// Capabilities
	DefineOperation(name string, op Operation)
	DefineEmitter(name string) error
	IsEmitter(name string) bool
	DefineEvent(t topic.Topic, def Definition) error
	SetSelectorCompiler(c SelectorCompiler)
	Normalize(t topic.Topic) topic.Topic

	// Lifecycle
	Start() error
	Stop(ctx context.Context) error
	Drain(ctx context.Context) error
	Pause()
	Resume()

	// Status
	Stats() Stats
	IsRunning() bool
	IsPaused() bool
}

// notifyEntry is a registered Notifier and its topic pattern.
type notifyEntry struct {
	pattern  topic.Topic
	notifier Notifier
}

// bus is the default Bus implementation.
type bus struct {
	// Subscription management
	registry *Registry

	// Execution
	executor *dispatch.Executor
	queue    *dispatch.Queue

	// Capabilities, guarded by mu
	mu          sync.RWMutex
	operations  map[string]Operation
	emitters    map[string]bool
	definitions map[topic.Topic]Definition
	notifiers   map[uint64]notifyEntry
	nextNotify  uint64
	compiler    SelectorCompiler

	// State
	running atomic.Bool
	paused  atomic.Bool

	// Configuration
	config busConfig
	log    zerolog.Logger

	// Stats
	eventsEmitted    atomic.Uint64
	handlersExecuted atomic.Uint64
	handlersSkipped  atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	tasksDeferred    atomic.Uint64
	tasksDropped     atomic.Uint64
	totalDeliveryNs  atomic.Int64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	log := config.logger.With().Str("component", "bus").Logger()

	b := &bus{
		registry:    NewRegistry(),
		operations:  make(map[string]Operation),
		emitters:    map[string]bool{config.defaultEmitter: true},
		definitions: make(map[topic.Topic]Definition),
		notifiers:   make(map[uint64]notifyEntry),
		config:      config,
		log:         log,
	}

	b.executor = dispatch.NewExecutor(dispatch.WithExecutorTimeout(config.handlerTimeout))
	b.queue = dispatch.NewQueue(
		dispatch.WithQueueSize(config.queueSize),
		dispatch.WithQueueExecutor(dispatch.NewExecutor(
			dispatch.WithExecutorPanicHandler(func(_ any, v any, stack []byte) {
				log.Error().Interface("panic", v).Bytes("stack", stack).Msg("deferred task panicked")
			}),
		)),
	)

	return b
}

// Start starts the deferred queue.
func (b *bus) Start() error {
	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	if err := b.queue.Start(); err != nil {
		return err
	}
	b.running.Store(true)
	return nil
}

// Stop stops the bus gracefully.
// It waits for all deferred tasks to run or until the context is cancelled.
func (b *bus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}
	return b.queue.Stop(ctx)
}

// Drain waits until the deferred queue is empty.
func (b *bus) Drain(ctx context.Context) error {
	return b.queue.Drain(ctx)
}

// Pause temporarily stops event delivery.
// Events can still be emitted but no subscriber runs.
func (b *bus) Pause() {
	b.paused.Store(true)
}

// Resume restarts event delivery after a pause.
func (b *bus) Resume() {
	b.paused.Store(false)
}

// IsRunning returns true if the bus accepts deferred work.
func (b *bus) IsRunning() bool {
	return b.running.Load()
}

// IsPaused returns true if the bus is paused.
func (b *bus) IsPaused() bool {
	return b.paused.Load()
}

// Normalize attributes a bare event name to the default emitter.
func (b *bus) Normalize(t topic.Topic) topic.Topic {
	return topic.Parse(string(t), b.config.defaultEmitter)
}

// Before subscribes fn to the before phase of t.
func (b *bus) Before(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(t, PhaseBefore, fn, opts...)
}

// After subscribes fn to the after phase of t.
func (b *bus) After(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscriber, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(t, PhaseAfter, fn, opts...)
}

// Subscribe creates a subscription for t in the given phase.
// This method is safe to call concurrently.
func (b *bus) Subscribe(t topic.Topic, phase Phase, handler Handler, opts ...SubscriptionOption) (*Subscriber, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	t = b.Normalize(t)
	if !t.IsValid() {
		return nil, ErrInvalidTopic
	}

	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	sub := newSubscriber(uuid.NewString(), t, phase, handler, config)

	if sub.Selector != "" {
		b.mu.RLock()
		compiler := b.compiler
		b.mu.RUnlock()
		if compiler == nil {
			return nil, ErrNoSelectorCompiler
		}
		filter, err := compiler.CompileSelector(sub)
		if err != nil {
			return nil, err
		}
		sub.Filter = filter
	}

	b.registry.Add(sub) // Registry is thread-safe

	for _, n := range b.notifiersFor(t) {
		if n.OnSubscribe != nil {
			n.OnSubscribe(sub)
		}
	}

	b.log.Debug().Str("topic", string(t)).Str("phase", phase.String()).Str("subscription", sub.ID).Msg("subscribed")
	return sub, nil
}

// Detach removes a subscription.
func (b *bus) Detach(sub *Subscriber) error {
	if sub == nil {
		return ErrInvalidSubscription
	}
	if _, ok := b.registry.Remove(sub.ID); !ok {
		return ErrSubscriptionNotFound
	}
	if !sub.detach() {
		return ErrSubscriptionNotFound
	}

	for _, n := range b.notifiersFor(sub.Topic) {
		if n.OnDetach != nil {
			n.OnDetach(sub)
		}
	}
	return nil
}

// DetachAll removes every subscription of exactly topic t and returns
// how many were removed.
func (b *bus) DetachAll(t topic.Topic) int {
	t = b.Normalize(t)
	removed := 0
	for _, phase := range []Phase{PhaseBefore, PhaseAfter} {
		for _, sub := range b.registry.ByTopic(t, phase) {
			if b.Detach(sub) == nil {
				removed++
			}
		}
	}
	return removed
}

// Notify registers n for subscriptions whose topic overlaps pattern.
// Existing overlapping subscriptions are announced immediately.
func (b *bus) Notify(pattern topic.Topic, n Notifier) func() {
	pattern = b.Normalize(pattern)

	b.mu.Lock()
	id := b.nextNotify
	b.nextNotify++
	b.notifiers[id] = notifyEntry{pattern: pattern, notifier: n}
	b.mu.Unlock()

	if n.OnSubscribe != nil {
		for _, sub := range b.registry.Overlapping(pattern) {
			n.OnSubscribe(sub)
		}
	}

	return func() {
		b.mu.Lock()
		delete(b.notifiers, id)
		b.mu.Unlock()
	}
}

func (b *bus) notifiersFor(t topic.Topic) []Notifier {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Notifier
	for _, entry := range b.notifiers {
		if t.Overlaps(entry.pattern) {
			result = append(result, entry.notifier)
		}
	}
	return result
}

// Gather returns the active subscribers for an emission of t in phase.
func (b *bus) Gather(t topic.Topic, phase Phase) []*Subscriber {
	return b.registry.Gather(b.Normalize(t), phase)
}

// DefineOperation makes op callable as e.Call(name) on every event object
// created afterwards.
func (b *bus) DefineOperation(name string, op Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operations[name] = op
}

// DefineEmitter registers an emitter name.
func (b *bus) DefineEmitter(name string) error {
	if name == "" || strings.Contains(name, topic.Separator) || strings.Contains(name, topic.Wildcard) {
		return ErrInvalidTopic
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitters[name] = true
	return nil
}

// IsEmitter reports whether name was registered with DefineEmitter.
func (b *bus) IsEmitter(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.emitters[name]
}

// DefineEvent sets the default and prevented functions of a concrete topic.
func (b *bus) DefineEvent(t topic.Topic, def Definition) error {
	t = b.Normalize(t)
	if !t.IsValid() || t.IsWildcard() {
		return ErrInvalidTopic
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.definitions[t] = def
	return nil
}

// SetSelectorCompiler installs the compiler for selector subscriptions.
func (b *bus) SetSelectorCompiler(c SelectorCompiler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compiler = c
}

func (b *bus) newObject(t topic.Topic, target, payload any) *Object {
	b.mu.RLock()
	ops := make(map[string]Operation, len(b.operations))
	for name, op := range b.operations {
		ops[name] = op
	}
	b.mu.RUnlock()

	b.eventsEmitted.Add(1)
	return newObject(t, target, payload, ops)
}

// Emit fires t at target. Before subscribers run first; when none halted
// the event or prevented its default, the topic's default function runs
// and then the after subscribers. Payload mutations made by before
// subscribers are visible to after subscribers.
func (b *bus) Emit(ctx context.Context, target any, t topic.Topic, payload any) *Object {
	t = b.Normalize(t)
	obj := b.newObject(t, target, payload)
	if b.paused.Load() {
		return obj
	}

	b.runPhase(ctx, obj, b.accepting(b.registry.Gather(t, PhaseBefore), obj.Payload), nil)

	b.mu.RLock()
	def := b.definitions[t]
	b.mu.RUnlock()

	switch {
	case obj.Status.OK():
		if def.DefaultFn != nil {
			def.DefaultFn(ctx, obj)
			obj.Status.DefaultFn = true
		}
		b.runPhase(ctx, obj, b.accepting(b.registry.Gather(t, PhaseAfter), obj.Payload), nil)
	case obj.Status.DefaultPrevented:
		if def.PreventedFn != nil {
			def.PreventedFn(ctx, obj)
			obj.Status.PreventedFn = true
		}
	}
	return obj
}

// EmitWith runs the given subscribers in order, consulting the hook
// before each. It is the building block for callers that gather, filter
// and order subscribers themselves.
func (b *bus) EmitWith(ctx context.Context, em Emission) *Object {
	obj := em.Object
	if obj == nil {
		obj = b.newObject(b.Normalize(em.Topic), em.Target, em.Payload)
	}
	if b.paused.Load() {
		return obj
	}
	b.runPhase(ctx, obj, em.Subscribers, em.Hook)
	return obj
}

// Defer runs task on the deferred queue, after the current call stack
// has returned. Tasks run one at a time in submission order.
func (b *bus) Defer(ctx context.Context, task dispatch.Task) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	err := b.queue.Enqueue(ctx, nil, task)
	switch {
	case err == nil:
		b.tasksDeferred.Add(1)
		return nil
	case errors.Is(err, dispatch.ErrQueueFull):
		b.tasksDropped.Add(1)
		return ErrQueueFull
	case errors.Is(err, dispatch.ErrNotRunning):
		return ErrBusNotRunning
	default:
		return err
	}
}

func (b *bus) accepting(subs []*Subscriber, payload any) []*Subscriber {
	result := subs[:0:0]
	for _, sub := range subs {
		if sub.Accepts(payload) {
			result = append(result, sub)
		}
	}
	return result
}

// runPhase invokes subs in order until one halts the event, the hook
// aborts or ctx is done.
func (b *bus) runPhase(ctx context.Context, obj *Object, subs []*Subscriber, hook Hook) {
	defer func() {
		obj.Subscriber = nil
		obj.Context = nil
	}()

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			obj.addErr(err)
			return
		}
		if !sub.IsActive() {
			continue
		}
		if hook != nil {
			switch hook(obj, sub) {
			case Skip:
				b.handlersSkipped.Add(1)
				continue
			case Abort:
				b.handlersSkipped.Add(1)
				return
			}
		}

		obj.Subscriber = sub
		obj.Context = sub.Context
		b.invoke(ctx, obj, sub)

		if sub.Once {
			_ = b.Detach(sub)
		}
		if obj.Status.Halted {
			return
		}
	}
}

func (b *bus) invoke(ctx context.Context, obj *Object, sub *Subscriber) {
	result := b.executor.Run(ctx, obj, func(ctx context.Context) error {
		return sub.Handler.Handle(ctx, obj)
	})
	b.handlersExecuted.Add(1)
	b.totalDeliveryNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Panicked:
		b.handlerPanics.Add(1)
		obj.addErr(&PanicError{
			SubscriptionID: sub.ID,
			Topic:          string(sub.Topic),
			Value:          result.PanicValue,
			Stack:          string(result.PanicStack),
		})
		b.log.Error().
			Str("topic", string(obj.Topic)).
			Str("subscription", sub.ID).
			Interface("panic", result.PanicValue).
			Msg("subscriber panicked")
		b.config.panicHandler(obj, sub, result.PanicValue)
	case result.Error != nil:
		b.handlerErrors.Add(1)
		obj.addErr(&HandlerError{
			SubscriptionID: sub.ID,
			Topic:          string(sub.Topic),
			Err:            result.Error,
		})
	}
}

// Stats returns current bus statistics.
func (b *bus) Stats() Stats {
	queueStats := b.queue.Stats()

	executed := b.handlersExecuted.Load()
	var avgNs int64
	if executed > 0 {
		avgNs = b.totalDeliveryNs.Load() / int64(executed)
	}

	return Stats{
		EventsEmitted:     b.eventsEmitted.Load(),
		HandlersExecuted:  executed,
		HandlersSkipped:   b.handlersSkipped.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		TasksDeferred:     b.tasksDeferred.Load(),
		TasksDropped:      b.tasksDropped.Load(),
		AvgDeliveryTimeNs: avgNs,
		ActiveSubscribers: b.registry.CountActive(),
		QueueDepth:        queueStats.Depth,
	}
}
