package delegate

import (
	"fmt"

	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
	"github.com/dshills/uidelegate/internal/event/topic"
)

// listener is one native capture listener shared by every subscription of
// a raw event name.
type listener struct {
	id   dom.ListenerID
	refs int
}

// RawEventName derives the native event name serving t. Outside topics
// share the listener of their base event. Wildcard names return "".
func (e *Engine) RawEventName(t topic.Topic) string {
	name := t.TrimSuffix(e.config.suffix).Name()
	if name == topic.Wildcard {
		return ""
	}
	return name
}

// EnsureListener attaches the capture listener for raw unless it is
// already attached, and takes a reference on it. The returned release
// func drops the reference; the listener is removed with the last one.
func (e *Engine) EnsureListener(raw string) (release func(), err error) {
	if err := e.acquire(raw); err != nil {
		return nil, err
	}
	var released bool
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if released {
			return
		}
		released = true
		e.releaseLocked(raw)
	}, nil
}

func (e *Engine) acquire(raw string) error {
	if raw == "" || raw == topic.Wildcard {
		return fmt.Errorf("%w: %q", ErrUnsupportedEvent, raw)
	}
	if e.config.unsupported[raw] {
		e.log.Warn().Str("event", raw).Msg("subscription not supported, use mouseover and mouseout")
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if l, ok := e.listeners[raw]; ok {
		l.refs++
		return nil
	}
	id := e.doc.AddCaptureListener(raw, func(ev *dom.Event) {
		e.dispatch(e.ctx, raw, ev, true)
	})
	e.listeners[raw] = &listener{id: id, refs: 1}
	e.log.Debug().Str("event", raw).Msg("capture listener attached")
	return nil
}

func (e *Engine) releaseLocked(raw string) {
	l, ok := e.listeners[raw]
	if !ok {
		return
	}
	l.refs--
	if l.refs > 0 {
		return
	}
	e.doc.RemoveCaptureListener(raw, l.id)
	delete(e.listeners, raw)
	e.log.Debug().Str("event", raw).Msg("capture listener removed")
}

// onSubscribe takes a listener reference for a new subscription.
func (e *Engine) onSubscribe(sub *event.Subscriber) {
	if !e.isEngineTopic(sub.Topic) {
		return
	}
	raw := e.RawEventName(sub.Topic)
	if raw == "" {
		return
	}
	if err := e.acquire(raw); err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.held[sub.ID]; dup {
		e.releaseLocked(raw)
		return
	}
	h := holding{raw: raw, outside: sub.Topic.HasSuffix(e.config.suffix)}
	e.held[sub.ID] = h
	if h.outside {
		e.outside[raw]++
	}
}

// onDetach drops the reference of a removed subscription.
func (e *Engine) onDetach(sub *event.Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.held[sub.ID]
	if !ok {
		return
	}
	delete(e.held, sub.ID)
	if h.outside {
		e.outside[h.raw]--
		if e.outside[h.raw] <= 0 {
			delete(e.outside, h.raw)
		}
	}
	e.releaseLocked(h.raw)
}

// isEngineTopic reports whether subscriptions to t can receive native
// events: topics of the engine's emitter or of the wildcard emitter.
func (e *Engine) isEngineTopic(t topic.Topic) bool {
	em := t.Emitter()
	return em == e.config.emitter || em == topic.Wildcard
}

// Listening reports whether a capture listener is attached for raw.
func (e *Engine) Listening(raw string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.listeners[raw]
	return ok
}

// References returns the number of references held on the listener for raw.
func (e *Engine) References(raw string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.listeners[raw]; ok {
		return l.refs
	}
	return 0
}
