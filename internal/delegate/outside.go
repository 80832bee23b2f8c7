package delegate

import (
	"github.com/dshills/uidelegate/internal/event"
	"github.com/dshills/uidelegate/internal/event/topic"
)

// OutsideTopic returns the outside topic of raw, such as "UI:clickoutside".
// Its subscribers fire for occurrences that did not happen inside their
// selector. They never see a resolved target.
func (e *Engine) OutsideTopic(raw string) topic.Topic {
	return e.Topic(raw).AddSuffix(e.config.suffix)
}

// IsOutside reports whether t is an outside topic.
func (e *Engine) IsOutside(t topic.Topic) bool {
	return t.HasSuffix(e.config.suffix)
}

// hasOutside reports whether an outside subscription exists for raw.
// Wildcard-name subscriptions alone do not start an outside pass.
func (e *Engine) hasOutside(raw string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outside[raw] > 0
}

// outsideOnly keeps the subscriptions made to an outside topic. Gathering
// an outside topic also yields "UI:*" and "*:*" subscribers; they belong
// to the primary pass only.
func (e *Engine) outsideOnly(subs []*event.Subscriber) []*event.Subscriber {
	out := make([]*event.Subscriber, 0, len(subs))
	for _, sub := range subs {
		if e.IsOutside(sub.Topic) {
			out = append(out, sub)
		}
	}
	return out
}
