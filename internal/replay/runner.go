package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/delegate"
	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
	"github.com/dshills/uidelegate/internal/event/topic"
	"github.com/dshills/uidelegate/internal/gesture"
)

// stopTimeout bounds the bus shutdown at the end of a run.
const stopTimeout = 5 * time.Second

// Runner runs scenarios. Every run gets its own document, bus and engine.
type Runner struct {
	busOpts      []event.BusOption
	delegateOpts []delegate.Option
	log          zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBusOptions sets the options of the bus created for each run.
func WithBusOptions(opts ...event.BusOption) Option {
	return func(r *Runner) {
		r.busOpts = append(r.busOpts, opts...)
	}
}

// WithDelegateOptions sets the options of the engine created for each run.
func WithDelegateOptions(opts ...delegate.Option) Option {
	return func(r *Runner) {
		r.delegateOpts = append(r.delegateOpts, opts...)
	}
}

// WithLogger sets the runner logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// recorder collects trace entries. After subscribers append from the
// bus worker.
type recorder struct {
	mu      sync.Mutex
	step    int
	entries []Entry
}

func (rec *recorder) setStep(i int) {
	rec.mu.Lock()
	rec.step = i
	rec.mu.Unlock()
}

func (rec *recorder) add(e Entry) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e.Step = rec.step
	rec.entries = append(rec.entries, e)
}

func (rec *recorder) snapshot() []Entry {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Entry(nil), rec.entries...)
}

// run is the state of one scenario run.
type run struct {
	doc      *dom.Document
	bus      event.Bus
	group    *event.Group
	rec      *recorder
	subs     map[string]*event.Subscriber
	defaults map[string]bool
}

// Run replays sc. The trace covers the steps performed before any error.
// A trace that differs from sc.Expect yields an *ExpectationError.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Trace, error) {
	doc, err := dom.ParseString(sc.Document)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	bus := event.NewBus(r.busOpts...)
	if err := bus.Start(); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			r.log.Warn().Err(err).Msg("bus stop")
		}
	}()

	engine, err := delegate.New(bus, doc, r.delegateOpts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = engine.Close() }()

	if sc.DoubleClick {
		g := gesture.NewDoubleClick(engine, gesture.WithLogger(r.log))
		g.Attach(doc)
		defer g.Detach()
	}

	st := &run{
		doc:      doc,
		bus:      bus,
		group:    event.NewGroup(bus),
		rec:      &recorder{},
		subs:     make(map[string]*event.Subscriber, len(sc.Subscriptions)),
		defaults: make(map[string]bool),
	}
	defer st.group.Close()
	trace := &Trace{Scenario: sc.Name}

	for _, sub := range sc.Subscriptions {
		if err := st.subscribe(sub); err != nil {
			return trace, fmt.Errorf("subscription %q: %w", sub.Label, err)
		}
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			trace.Entries = st.rec.snapshot()
			return trace, err
		}
		st.rec.setStep(i)
		res, err := st.perform(ctx, i, step)
		if err != nil {
			trace.Entries = st.rec.snapshot()
			return trace, &StepError{Step: i, Kind: step.Kind(), Err: err}
		}
		trace.Steps = append(trace.Steps, res)
		r.log.Debug().Int("step", i).Str("kind", res.Kind).Str("target", res.Target).Msg("step done")
	}

	trace.Entries = st.rec.snapshot()
	return trace, trace.Check(sc.Expect)
}

func (st *run) subscribe(s Subscription) error {
	var opts []event.SubscriptionOption
	if s.Selector != "" {
		opts = append(opts, event.WithSelector(s.Selector))
	}
	if s.Once {
		opts = append(opts, event.WithOnce())
	}
	if s.Prepend {
		opts = append(opts, event.WithPrepend())
	}

	subscribe := st.group.Before
	if s.Phase == PhaseAfter {
		subscribe = st.group.After
	}
	sub, err := subscribe(topic.Topic(s.Event), st.handler(s), opts...)
	if err != nil {
		return err
	}
	st.subs[s.Label] = sub
	return nil
}

func (st *run) handler(s Subscription) event.HandlerFunc {
	phase := s.Phase
	if phase == "" {
		phase = PhaseBefore
	}
	return func(ctx context.Context, e *event.Object) error {
		st.rec.add(Entry{
			Label:         s.Label,
			Phase:         phase,
			Topic:         string(e.Topic),
			Target:        nodeName(e.Target),
			CurrentTarget: nodeName(e.CurrentTarget),
		})

		switch s.Action {
		case ActionStopPropagation:
			return delegate.StopPropagation(e)
		case ActionStopImmediatePropagation:
			return delegate.StopImmediatePropagation(e)
		case ActionPreventDefault:
			e.PreventDefault()
		case ActionHalt:
			e.Halt()
		}
		return nil
	}
}

func (st *run) perform(ctx context.Context, i int, step Step) (StepResult, error) {
	res := StepResult{Step: i, Kind: step.Kind()}

	switch {
	case step.Dispatch != "":
		target, err := st.doc.Query(step.Target)
		if err != nil {
			return res, err
		}
		st.installDefault(step.Dispatch)

		ev := st.doc.Fire(step.Dispatch, target)
		if err := st.bus.Drain(ctx); err != nil {
			return res, err
		}
		res.Event = step.Dispatch
		res.Target = nodeName(target)
		res.DefaultPrevented = ev.DefaultPrevented()
		res.PropagationStopped = ev.PropagationStopped()

	case step.Insert != nil:
		parent, err := st.doc.Query(step.Insert.Parent)
		if err != nil {
			return res, err
		}
		el := st.doc.CreateElement(step.Insert.Tag, step.Insert.Attrs)
		if err := st.doc.AppendChild(parent, el); err != nil {
			return res, err
		}
		res.Target = nodeName(el)

	case step.Remove != "":
		n, err := st.doc.Query(step.Remove)
		if err != nil {
			return res, err
		}
		if err := st.doc.Remove(n); err != nil {
			return res, err
		}
		res.Target = nodeName(n)

	case step.Detach != "":
		sub, ok := st.subs[step.Detach]
		if !ok {
			return res, fmt.Errorf("no subscription labeled %q", step.Detach)
		}
		if err := st.group.Detach(sub); err != nil {
			return res, err
		}
	}
	return res, nil
}

// installDefault records the default action of name in the trace.
func (st *run) installDefault(name string) {
	if st.defaults[name] {
		return
	}
	st.defaults[name] = true
	st.doc.SetDefaultAction(name, func(ev *dom.Event) {
		st.rec.add(Entry{
			Label:  PhaseDefault,
			Phase:  PhaseDefault,
			Target: nodeName(ev.Target()),
		})
	})
}
