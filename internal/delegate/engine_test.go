package delegate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
)

const page = `<html><body>
<div id="divcont" class="contclass">
  <button id="buttongo" class="buttongoclass">go</button>
  <div id="divnode2" class="divnode2class">
    <div id="divnode3"><button id="deepest"></button></div>
  </div>
</div>
<p id="elsewhere">text</p>
</body></html>`

type harness struct {
	bus    event.Bus
	doc    *dom.Document
	engine *Engine
}

func newHarness(t *testing.T, html string, opts ...Option) *harness {
	t.Helper()
	bus := event.NewBus()
	require.NoError(t, bus.Start())
	doc := dom.MustParseString(html)
	engine, err := New(bus, doc, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = engine.Close()
		_ = bus.Stop(ctx)
	})
	return &harness{bus: bus, doc: doc, engine: engine}
}

func (h *harness) node(t *testing.T, id string) *dom.Node {
	t.Helper()
	n := h.doc.GetElementByID(id)
	require.NotNil(t, n, "no element #%s", id)
	return n
}

// click fires a click at the element with the given id and waits for the
// after phase.
func (h *harness) click(t *testing.T, id string) *dom.Event {
	t.Helper()
	ev := h.doc.Fire("click", h.node(t, id))
	h.drain(t)
	return ev
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.bus.Drain(ctx))
}

func (h *harness) before(t *testing.T, selector string, fn event.HandlerFunc) *event.Subscriber {
	t.Helper()
	sub, err := h.bus.Before("click", fn, event.WithSelector(selector))
	require.NoError(t, err)
	return sub
}

func (h *harness) after(t *testing.T, selector string, fn event.HandlerFunc) *event.Subscriber {
	t.Helper()
	sub, err := h.bus.After("click", fn, event.WithSelector(selector))
	require.NoError(t, err)
	return sub
}

// counter is a shared counter for subscribers that may run on the
// deferred queue.
type counter struct {
	mu sync.Mutex
	n  int
}

// add asserts the current value and adds delta.
func (c *counter) add(t *testing.T, want, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, want, c.n)
	c.n += delta
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func mustNotRun(t *testing.T, label string) event.HandlerFunc {
	return func(ctx context.Context, e *event.Object) error {
		t.Errorf("%s should not be invoked", label)
		return nil
	}
}

func targetID(v any) string {
	if n, ok := v.(*dom.Node); ok && n != nil {
		if n.IsDocument() {
			return "#document"
		}
		return n.ID()
	}
	return ""
}

func TestNew_Validation(t *testing.T) {
	doc := dom.MustParseString(page)

	_, err := New(nil, doc)
	assert.ErrorIs(t, err, ErrNilBus)

	_, err = New(event.NewBus(), nil)
	assert.ErrorIs(t, err, ErrNilDocument)

	_, err = New(event.NewBus(), doc, WithEmitter("bad:name"))
	assert.ErrorIs(t, err, event.ErrInvalidTopic)
}

func TestEngine_ListeningEvent(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		c.add(t, 0, 1)
		return nil
	})

	h.click(t, "buttongo")
	assert.Equal(t, 1, c.value())
}

func TestEngine_PreventDefault(t *testing.T) {
	h := newHarness(t, page)

	var followed bool
	h.doc.SetDefaultAction("click", func(ev *dom.Event) { followed = true })

	h.after(t, "#buttongo", mustNotRun(t, "after subscriber"))
	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		e.PreventDefault()
		return nil
	})

	ev := h.click(t, "buttongo")
	assert.True(t, ev.DefaultPrevented())
	assert.False(t, ev.PropagationStopped(), "preventDefault must not stop native propagation")
	assert.False(t, followed)
}

func TestEngine_Halt(t *testing.T) {
	h := newHarness(t, page)

	h.after(t, "#buttongo", mustNotRun(t, "after subscriber"))
	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		e.Halt()
		return nil
	})
	h.before(t, "#divcont", mustNotRun(t, "before subscriber after halt"))

	ev := h.click(t, "buttongo")
	assert.True(t, ev.PropagationStopped())
	assert.True(t, ev.DefaultPrevented())
}

func TestEngine_AfterPhaseFollowsDefaultAction(t *testing.T) {
	h := newHarness(t, page)

	var mu sync.Mutex
	var order []string
	record := func(label string) {
		mu.Lock()
		order = append(order, label)
		mu.Unlock()
	}

	h.doc.SetDefaultAction("click", func(ev *dom.Event) { record("default") })
	h.before(t, "button", func(ctx context.Context, e *event.Object) error {
		record("before")
		return nil
	})
	h.after(t, "button", func(ctx context.Context, e *event.Object) error {
		record("after")
		return nil
	})

	h.click(t, "buttongo")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"before", "default", "after"}, order)
}

func TestEngine_DelegationOnFutureNodes(t *testing.T) {
	tests := []struct {
		name           string
		preventOnThree bool
		want           int
	}{
		{"plain", false, 3},
		{"with preventDefault", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, page)

			var c counter
			inc := func(ctx context.Context, e *event.Object) error {
				c.mu.Lock()
				c.n++
				c.mu.Unlock()
				return nil
			}
			if tt.preventOnThree {
				h.before(t, "#buttongo3", func(ctx context.Context, e *event.Object) error {
					e.PreventDefault()
					return nil
				})
			}
			h.after(t, "#buttongo2", inc)
			h.after(t, ".go", inc)

			body := h.doc.Body()
			two := h.doc.CreateElement("button", map[string]string{"id": "buttongo2", "class": "go"})
			three := h.doc.CreateElement("button", map[string]string{"id": "buttongo3", "class": "go"})
			require.NoError(t, h.doc.AppendChild(body, two))
			require.NoError(t, h.doc.AppendChild(body, three))

			h.click(t, "buttongo2")
			h.click(t, "buttongo3")
			require.NoError(t, h.doc.Remove(two))
			require.NoError(t, h.doc.Remove(three))

			assert.Equal(t, tt.want, c.value())
		})
	}
}

func TestEngine_TargetOverride(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	expect := func(id string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			assert.Equal(t, id, targetID(e.Target))
			assert.Equal(t, "buttongo", targetID(e.SourceTarget))
			c.mu.Lock()
			c.n++
			c.mu.Unlock()
			return nil
		}
	}
	h.after(t, "#buttongo", expect("buttongo"))
	h.after(t, ".contclass", expect("divcont"))
	h.after(t, ".contclass button", expect("buttongo"))

	h.click(t, "buttongo")
	assert.Equal(t, 3, c.value())
}

func TestEngine_TargetWithPredicates(t *testing.T) {
	h := newHarness(t, page)

	var calls []string
	idIs := func(id string) event.SubscriptionOption {
		return event.WithPredicate(func(payload any) bool {
			ev, ok := payload.(NativeEvent)
			return ok && ev.Target().ID() == id
		})
	}
	record := func(label string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			// Predicates never move the target.
			assert.Equal(t, "buttongo", targetID(e.Target))
			assert.Equal(t, "#document", targetID(e.CurrentTarget))
			calls = append(calls, label)
			return nil
		}
	}

	_, err := h.bus.Before("click", record("first"), idIs("buttongo"))
	require.NoError(t, err)
	_, err = h.bus.Before("click", record("container"), idIs("divcont"))
	require.NoError(t, err)
	_, err = h.bus.Before("click", record("third"), idIs("buttongo"))
	require.NoError(t, err)

	h.click(t, "buttongo")
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestEngine_TargetMixedSelectorAndPredicate(t *testing.T) {
	h := newHarness(t, page)

	var targets []string
	record := func(ctx context.Context, e *event.Object) error {
		targets = append(targets, targetID(e.Target))
		return nil
	}

	h.before(t, ".contclass", record)
	_, err := h.bus.Before("click", record, event.WithPredicate(func(any) bool { return true }))
	require.NoError(t, err)
	h.before(t, "#buttongo", record)

	h.click(t, "buttongo")
	// Bubble order: the button, the container, then the document-level
	// predicate which sees the original target again.
	assert.Equal(t, []string{"buttongo", "divcont", "buttongo"}, targets)
}

func TestEngine_TargetOnMultipleSubscribers(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	expect := func(id string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			assert.Equal(t, id, targetID(e.Target))
			assert.Equal(t, "deepest", targetID(e.SourceTarget))
			c.mu.Lock()
			c.n++
			c.mu.Unlock()
			return nil
		}
	}
	h.after(t, "div.divnode2class", expect("divnode2"))
	h.after(t, "div.contclass", expect("divcont"))
	h.after(t, "div", expect("divnode3"))

	h.click(t, "deepest")
	assert.Equal(t, 3, c.value())
}

func TestEngine_CurrentTarget(t *testing.T) {
	h := newHarness(t, page)

	type seen struct{ target, current, source string }
	var mu sync.Mutex
	got := map[string]seen{}
	record := func(label string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			mu.Lock()
			got[label] = seen{targetID(e.Target), targetID(e.CurrentTarget), targetID(e.SourceTarget)}
			mu.Unlock()
			return nil
		}
	}
	h.after(t, "#divcont .divnode2class", record("anchored"))
	h.after(t, "#divnode2 button", record("button"))
	h.after(t, ".divnode2class", record("document"))

	h.click(t, "deepest")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, seen{"divnode2", "divnode2", "deepest"}, got["anchored"])
	assert.Equal(t, seen{"deepest", "deepest", "deepest"}, got["button"])
	assert.Equal(t, seen{"divnode2", "divnode2", "deepest"}, got["document"])
}

func TestEngine_BubbleOrder(t *testing.T) {
	h := newHarness(t, `<html><body>
<div id="outer"><div id="mid"><div id="inner"></div></div></div>
</body></html>`)

	var mu sync.Mutex
	var calls []string
	record := func(label string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			mu.Lock()
			calls = append(calls, label)
			mu.Unlock()
			return nil
		}
	}

	// Subscribed root first; dispatch must still bubble leaf first.
	for _, id := range []string{"outer", "mid", "inner"} {
		h.before(t, "#"+id, record("before:"+id))
		h.after(t, "#"+id, record("after:"+id))
	}

	h.click(t, "inner")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"before:inner", "before:mid", "before:outer",
		"after:inner", "after:mid", "after:outer",
	}, calls)
}

func TestEngine_NestedStopPropagation(t *testing.T) {
	h := newHarness(t, `<html><body>
<div id="outer"><div id="mid"><div id="inner"></div></div></div>
</body></html>`)

	var calls []string
	h.before(t, "#outer", func(ctx context.Context, e *event.Object) error {
		calls = append(calls, "1")
		return nil
	})
	h.before(t, "#inner", func(ctx context.Context, e *event.Object) error {
		calls = append(calls, "2")
		return StopPropagation(e)
	})
	h.before(t, "#mid", mustNotRun(t, "mid"))

	h.click(t, "inner")
	assert.Equal(t, []string{"2"}, calls)
}

func TestEngine_StopPropagation(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	step := func(want, delta int) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			c.add(t, want, delta)
			return nil
		}
	}

	h.after(t, "#divcont", mustNotRun(t, "after #divcont"))
	h.after(t, "#divcont button.buttongoclass", step(15, 16))
	h.after(t, "#buttongo", step(31, 32))

	h.before(t, "#divcont", mustNotRun(t, "before #divcont"))
	h.before(t, "#divcont button.buttongoclass", step(0, 1))
	h.before(t, "#divcont button.buttongoclass", func(ctx context.Context, e *event.Object) error {
		c.add(t, 1, 2)
		return StopPropagation(e)
	})
	h.before(t, "#divcont button.buttongoclass", step(3, 4))
	h.before(t, "#buttongo", step(7, 8))

	ev := h.click(t, "buttongo")
	assert.Equal(t, 63, c.value())
	assert.False(t, ev.PropagationStopped(), "delegated stopPropagation stays inside the engine")
}

func TestEngine_StopPropagationNested(t *testing.T) {
	tests := []struct {
		name     string
		stopper  string
		skipped  string
		ancestor string
	}{
		{"class selectors", ".divnode2class", ".contclass", ".divnode2class"},
		{"id selectors", "#divnode2", "#divcont", "#divnode2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, page)

			var c counter
			step := func(want, delta int) event.HandlerFunc {
				return func(ctx context.Context, e *event.Object) error {
					c.add(t, want, delta)
					return nil
				}
			}

			h.after(t, "button.buttongoclass", mustNotRun(t, "after button.buttongoclass"))
			h.after(t, tt.skipped, mustNotRun(t, "after "+tt.skipped))
			h.after(t, tt.ancestor, step(31, 32))
			h.after(t, "#divnode3", step(15, 16))
			h.after(t, "button", step(7, 8))

			h.before(t, "button.buttongoclass", mustNotRun(t, "before button.buttongoclass"))
			h.before(t, tt.skipped, mustNotRun(t, "before "+tt.skipped))
			h.before(t, tt.stopper, func(ctx context.Context, e *event.Object) error {
				c.add(t, 3, 4)
				return StopPropagation(e)
			})
			h.before(t, "#divnode3", step(1, 2))
			h.before(t, "button", step(0, 1))

			h.click(t, "deepest")
			assert.Equal(t, 63, c.value())
		})
	}
}

func TestEngine_StopImmediatePropagation(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	h.after(t, "#divcont", mustNotRun(t, "after #divcont"))
	h.after(t, "#divcont button.buttongoclass", mustNotRun(t, "after button"))
	h.after(t, "#buttongo", mustNotRun(t, "after #buttongo"))

	h.before(t, "#divcont", mustNotRun(t, "before #divcont"))
	h.before(t, "#divcont button.buttongoclass", func(ctx context.Context, e *event.Object) error {
		c.add(t, 0, 1)
		return nil
	})
	h.before(t, "#divcont button.buttongoclass", func(ctx context.Context, e *event.Object) error {
		c.add(t, 1, 2)
		return StopImmediatePropagation(e)
	})
	h.before(t, "#divcont button.buttongoclass", mustNotRun(t, "third button subscriber"))
	h.before(t, "#buttongo", mustNotRun(t, "before #buttongo"))

	h.click(t, "buttongo")
	assert.Equal(t, 3, c.value())
}

func TestEngine_StopIgnoredWhenNotOK(t *testing.T) {
	h := newHarness(t, page)

	var ran bool
	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		e.PreventDefault()
		return StopImmediatePropagation(e)
	})
	h.before(t, "#divcont", func(ctx context.Context, e *event.Object) error {
		ran = true
		return nil
	})

	out := h.engine.Dispatch(context.Background(), "click", dom.NewEvent("click", h.node(t, "buttongo")))
	h.drain(t)

	assert.True(t, ran, "a prevented event no longer records stops")
	assert.Nil(t, out.Event.Status.ImmediatePropagationStopped)
}

func TestEngine_LateBoundAnchor(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	h.before(t, "#later button", func(ctx context.Context, e *event.Object) error {
		c.mu.Lock()
		c.n++
		c.mu.Unlock()
		assert.Equal(t, "later", targetID(e.CurrentTarget.(*dom.Node).Parent()))
		return nil
	})

	h.click(t, "buttongo")
	assert.Equal(t, 0, c.value())

	later := h.doc.CreateElement("section", map[string]string{"id": "later"})
	btn := h.doc.CreateElement("button", map[string]string{"id": "late-button"})
	require.NoError(t, h.doc.AppendChild(later, btn))
	require.NoError(t, h.doc.AppendChild(h.doc.Body(), later))

	h.click(t, "late-button")
	assert.Equal(t, 1, c.value())
}

func TestEngine_UnresolvedAnchorExcluded(t *testing.T) {
	h := newHarness(t, page)

	// The selector matches through the class, but the anchor id is absent.
	h.before(t, ".buttongoclass, #missing", mustNotRun(t, "unanchored subscriber"))
	h.click(t, "buttongo")
}

func TestEngine_NativeEventWithoutMethods(t *testing.T) {
	h := newHarness(t, page)

	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		e.Halt()
		return nil
	})

	ev := &plainEvent{typ: "click", target: h.node(t, "buttongo")}
	var out Outcome
	assert.NotPanics(t, func() {
		out = h.engine.DispatchNative(context.Background(), ev)
	})
	assert.True(t, out.Event.Status.Halted)
}

// plainEvent is a native event without propagation or default control.
type plainEvent struct {
	typ    string
	target *dom.Node
}

func (e *plainEvent) Type() string      { return e.typ }
func (e *plainEvent) Target() *dom.Node { return e.target }

func TestEngine_DispatchNativeRunsAfterPhase(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		c.add(t, 0, 1)
		return nil
	})
	// A listener exists only for subscriptions; direct dispatch works
	// without one.
	out := h.engine.DispatchNative(context.Background(), &plainEvent{typ: "click", target: h.node(t, "buttongo")})
	h.drain(t)

	assert.True(t, out.Event.Status.OK())
	assert.Nil(t, out.Outside)
	assert.Equal(t, 1, c.value())
}

func TestEngine_WildcardClasses(t *testing.T) {
	h := newHarness(t, page)

	var mu sync.Mutex
	var calls []string
	record := func(label string) event.HandlerFunc {
		return func(ctx context.Context, e *event.Object) error {
			mu.Lock()
			calls = append(calls, label)
			mu.Unlock()
			return nil
		}
	}

	_, err := h.bus.Before("*:click", record("any-emitter"), event.WithSelector("#buttongo"))
	require.NoError(t, err)
	_, err = h.bus.Before("UI:*", record("any-event"))
	require.NoError(t, err)
	_, err = h.bus.Before("*:*", record("everything"))
	require.NoError(t, err)
	_, err = h.bus.Before("red:click", record("other-emitter"))
	require.NoError(t, err)

	h.click(t, "buttongo")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"any-emitter", "any-event", "everything"}, calls)
}

func TestEngine_OnceSelectorSubscription(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	_, err := h.bus.Before("click", func(ctx context.Context, e *event.Object) error {
		c.mu.Lock()
		c.n++
		c.mu.Unlock()
		return nil
	}, event.WithSelector("#buttongo"), event.WithOnce())
	require.NoError(t, err)

	h.click(t, "buttongo")
	h.click(t, "buttongo")
	assert.Equal(t, 1, c.value())
	assert.False(t, h.engine.Listening("click"), "the listener goes with the last subscription")
}

func TestEngine_InvalidSelector(t *testing.T) {
	h := newHarness(t, page)

	_, err := h.bus.Before("click", func(ctx context.Context, e *event.Object) error { return nil },
		event.WithSelector("div[[["))
	var selErr *dom.SelectorError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, "div[[[", selErr.Selector)
	assert.False(t, h.engine.Listening("click"))
}

func TestEngine_HandlerErrorsCollected(t *testing.T) {
	h := newHarness(t, page)

	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		panic("boom")
	})
	var reached bool
	h.before(t, "#divcont", func(ctx context.Context, e *event.Object) error {
		reached = true
		return nil
	})

	out := h.engine.Dispatch(context.Background(), "click", dom.NewEvent("click", h.node(t, "buttongo")))
	h.drain(t)

	assert.True(t, reached)
	assert.ErrorIs(t, out.Event.Err, event.ErrHandlerPanic)
}

func TestEngine_Close(t *testing.T) {
	h := newHarness(t, page)

	h.before(t, "#buttongo", func(ctx context.Context, e *event.Object) error { return nil })
	require.Equal(t, 1, h.doc.ListenerCount("click"))

	require.NoError(t, h.engine.Close())
	assert.Equal(t, 0, h.doc.ListenerCount("click"))
	assert.ErrorIs(t, h.engine.Close(), ErrClosed)

	_, err := h.engine.EnsureListener("click")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = h.bus.Before("click", func(ctx context.Context, e *event.Object) error { return nil },
		event.WithSelector("#buttongo"))
	assert.ErrorIs(t, err, event.ErrNoSelectorCompiler)
}

func TestEngine_Stats(t *testing.T) {
	h := newHarness(t, page)

	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error { return nil })
	h.click(t, "buttongo")
	h.click(t, "elsewhere")

	st := h.engine.Stats()
	assert.Equal(t, uint64(2), st.Dispatched)
	assert.Equal(t, uint64(1), st.AfterScheduled)
	assert.Equal(t, 1, st.Listeners)
	assert.Equal(t, 1, st.Subscriptions)
}

func TestEngine_AfterPhaseInlineWhenBusStopped(t *testing.T) {
	bus := event.NewBus()
	doc := dom.MustParseString(page)
	engine, err := New(bus, doc)
	require.NoError(t, err)
	defer engine.Close()

	var ran bool
	_, err = bus.After("click", func(ctx context.Context, e *event.Object) error {
		ran = true
		return nil
	}, event.WithSelector("button"))
	require.NoError(t, err)

	doc.Fire("click", doc.GetElementByID("buttongo"))
	assert.True(t, ran)
}

func TestEngine_ExactIDWithSelectorCharacters(t *testing.T) {
	h := newHarness(t, `<html><body><ul id="menu">
<li id="item.1"><span id="label">one</span></li>
<li id="a:b">two</li>
</ul></body></html>`)

	var hits []string
	for _, sel := range []string{"#item.1", "#a:b"} {
		sel := sel
		h.before(t, sel, func(ctx context.Context, e *event.Object) error {
			hits = append(hits, sel+"@"+targetID(e.Target))
			return nil
		})
	}

	h.click(t, "label")
	h.click(t, "a:b")
	assert.Equal(t, []string{"#item.1@item.1", "#a:b@a:b"}, hits)
}

func TestEngine_NextEventWaitsForAfterPhase(t *testing.T) {
	h := newHarness(t, page)

	release := make(chan struct{})
	var mu sync.Mutex
	var order []string
	record := func(label string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, label)
	}

	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		<-release
		record("after buttongo")
		return nil
	})
	h.before(t, "#elsewhere", func(ctx context.Context, e *event.Object) error {
		record("before elsewhere")
		return nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	h.doc.Fire("click", h.node(t, "buttongo"))
	h.doc.Fire("click", h.node(t, "elsewhere"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"after buttongo", "before elsewhere"}, order)
}

func TestEngine_DispatchFromAfterPhase(t *testing.T) {
	h := newHarness(t, page)
	elsewhere := h.node(t, "elsewhere")

	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		h.doc.Fire("click", elsewhere)
		return nil
	})
	var c counter
	h.after(t, "#elsewhere", func(ctx context.Context, e *event.Object) error {
		c.add(t, 0, 1)
		return nil
	})

	h.doc.Fire("click", h.node(t, "buttongo"))
	assert.Equal(t, 1, c.value(), "nested after phases run before the outer dispatch returns")
}

func TestEngine_DirectDispatchWaitsForAfterPhase(t *testing.T) {
	h := newHarness(t, page)

	var c counter
	h.after(t, "#buttongo", func(ctx context.Context, e *event.Object) error {
		time.Sleep(10 * time.Millisecond)
		c.add(t, 0, 1)
		return nil
	})

	h.engine.Dispatch(context.Background(), "click", dom.NewEvent("click", h.node(t, "buttongo")))
	assert.Equal(t, 1, c.value())
}

func BenchmarkEngine_Dispatch(b *testing.B) {
	bus := event.NewBus()
	doc := dom.MustParseString(page)
	engine, err := New(bus, doc)
	require.NoError(b, err)
	defer engine.Close()

	noop := func(ctx context.Context, e *event.Object) error { return nil }
	for _, sel := range []string{"#divcont", "#divnode2", "div", "button", ".divnode2class"} {
		_, err := bus.Before("click", noop, event.WithSelector(sel))
		require.NoError(b, err)
	}
	target := doc.GetElementByID("deepest")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Dispatch(ctx, "click", dom.NewEvent("click", target))
	}
}
