// Package gesture synthesizes compound events from native ones and feeds
// them through a delegation engine.
package gesture

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/delegate"
	"github.com/dshills/uidelegate/internal/dom"
)

// DefaultDoubleClickWindow is the longest gap between the clicks of a
// double click.
const DefaultDoubleClickWindow = 500 * time.Millisecond

// Dispatcher pushes events that have no native listener of their own.
type Dispatcher interface {
	DispatchNative(ctx context.Context, ev delegate.NativeEvent) delegate.Outcome
}

// DoubleClick turns two clicks on the same element within the window into
// a "dblclick" event, dispatched after the second click's default action.
type DoubleClick struct {
	eng    Dispatcher
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu        sync.Mutex
	doc       *dom.Document
	id        dom.ListenerID
	lastNode  *dom.Node
	lastTime  time.Time
	lastCount int
}

// Option configures a DoubleClick.
type Option func(*DoubleClick)

// WithWindow sets the double click window.
func WithWindow(d time.Duration) Option {
	return func(g *DoubleClick) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *DoubleClick) {
		g.log = l
	}
}

// NewDoubleClick creates a recognizer dispatching through eng.
func NewDoubleClick(eng Dispatcher, opts ...Option) *DoubleClick {
	g := &DoubleClick{
		eng:    eng,
		window: DefaultDoubleClickWindow,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach starts watching clicks on doc. A recognizer watches one document
// at a time; attaching again moves it.
func (g *DoubleClick) Attach(doc *dom.Document) {
	g.Detach()
	id := doc.AddCaptureListener("click", g.onClick)

	g.mu.Lock()
	g.doc = doc
	g.id = id
	g.mu.Unlock()
}

// Detach stops watching and forgets the click sequence.
func (g *DoubleClick) Detach() {
	g.mu.Lock()
	doc, id := g.doc, g.id
	g.doc = nil
	g.reset()
	g.mu.Unlock()

	if doc != nil {
		doc.RemoveCaptureListener("click", id)
	}
}

func (g *DoubleClick) onClick(ev *dom.Event) {
	target := ev.Target()
	if target == nil {
		return
	}

	g.mu.Lock()
	count := g.record(target, g.now())
	g.mu.Unlock()
	if count != 2 {
		return
	}

	ev.AfterDefault(func() {
		g.log.Debug().Stringer("target", target).Msg("double click")
		g.eng.DispatchNative(context.Background(), dom.NewEvent("dblclick", target))
	})
}

// record counts the click and returns its position in the sequence, 1 or
// 2. A third click starts a new sequence.
func (g *DoubleClick) record(target *dom.Node, ts time.Time) int {
	if g.continues(target, ts) {
		g.lastCount++
		if g.lastCount > 2 {
			g.lastCount = 1
		}
	} else {
		g.lastCount = 1
	}
	g.lastNode = target
	g.lastTime = ts
	return g.lastCount
}

// continues reports whether a click extends the current sequence. Clock
// skew starts a new one.
func (g *DoubleClick) continues(target *dom.Node, ts time.Time) bool {
	if g.lastCount == 0 || g.lastNode != target {
		return false
	}
	elapsed := ts.Sub(g.lastTime)
	return elapsed >= 0 && elapsed <= g.window
}

func (g *DoubleClick) reset() {
	g.lastCount = 0
	g.lastNode = nil
	g.lastTime = time.Time{}
}
