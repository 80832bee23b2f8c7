package event

import (
	"sync"

	"github.com/dshills/uidelegate/internal/event/topic"
)

// phaseKey addresses the ordered subscriber list of one topic and phase.
type phaseKey struct {
	topic topic.Topic
	phase Phase
}

// Registry manages subscriptions organized by topic and phase.
// It is thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	subs    map[phaseKey][]*Subscriber
	byID    map[string]*Subscriber
	counts  map[topic.Topic]int
	matcher *topic.Matcher
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:    make(map[phaseKey][]*Subscriber),
		byID:    make(map[string]*Subscriber),
		counts:  make(map[topic.Topic]int),
		matcher: topic.NewMatcher(),
	}
}

// Add adds a subscription. Prepended subscriptions go in front of the
// existing ones of the same topic and phase; others are appended.
func (r *Registry) Add(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := phaseKey{topic: sub.Topic, phase: sub.Phase}
	list := r.subs[key]
	if sub.Prepend {
		list = append([]*Subscriber{sub}, list...)
	} else {
		list = append(list, sub)
	}
	r.subs[key] = list

	r.byID[sub.ID] = sub
	r.counts[sub.Topic]++
	r.matcher.Add(sub.Topic)
}

// Remove removes a subscription by ID and returns it.
func (r *Registry) Remove(subID string) (*Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byID[subID]
	if !exists {
		return nil, false
	}
	r.removeLocked(sub)
	return sub, true
}

func (r *Registry) removeLocked(sub *Subscriber) {
	key := phaseKey{topic: sub.Topic, phase: sub.Phase}
	list := r.subs[key]
	for i, s := range list {
		if s.ID == sub.ID {
			// Copy so gathered snapshots stay intact.
			next := make([]*Subscriber, 0, len(list)-1)
			next = append(next, list[:i]...)
			r.subs[key] = append(next, list[i+1:]...)
			break
		}
	}
	if len(r.subs[key]) == 0 {
		delete(r.subs, key)
	}

	r.counts[sub.Topic]--
	if r.counts[sub.Topic] <= 0 {
		delete(r.counts, sub.Topic)
		r.matcher.Remove(sub.Topic)
	}
	delete(r.byID, sub.ID)
}

// Get returns a subscription by ID.
func (r *Registry) Get(subID string) (*Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.byID[subID]
	return sub, exists
}

// ByTopic returns the subscriptions of exactly one topic and phase in
// invocation order.
func (r *Registry) ByTopic(t topic.Topic, phase Phase) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.subs[phaseKey{topic: t, phase: phase}]
	if len(list) == 0 {
		return nil
	}
	result := make([]*Subscriber, len(list))
	copy(result, list)
	return result
}

// Gather returns the active subscriptions that receive an emission of the
// concrete topic t in the given phase: those of t itself, then "*:name",
// then "emitter:*", then "*:*". Order within each class is kept.
func (r *Registry) Gather(t topic.Topic, phase Phase) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Subscriber
	seen := make(map[topic.Topic]bool, 4)
	for _, class := range t.Classes() {
		if seen[class] {
			continue
		}
		seen[class] = true
		for _, sub := range r.subs[phaseKey{topic: class, phase: phase}] {
			if sub.IsActive() {
				result = append(result, sub)
			}
		}
	}
	return result
}

// Overlapping returns the subscriptions whose topic could receive an
// emission that pattern also matches.
func (r *Registry) Overlapping(pattern topic.Topic) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Subscriber
	for _, t := range r.matcher.Overlapping(pattern) {
		for _, phase := range []Phase{PhaseBefore, PhaseAfter} {
			result = append(result, r.subs[phaseKey{topic: t, phase: phase}]...)
		}
	}
	return result
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountByTopic returns the number of subscriptions for a topic in both phases.
func (r *Registry) CountByTopic(t topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.counts[t]
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Topics returns all topics with subscriptions.
func (r *Registry) Topics() []topic.Topic {
	return r.matcher.Patterns()
}

// Clear removes all subscriptions and returns them.
func (r *Registry) Clear() []*Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]*Subscriber, 0, len(r.byID))
	for _, sub := range r.byID {
		removed = append(removed, sub)
	}

	r.subs = make(map[phaseKey][]*Subscriber)
	r.byID = make(map[string]*Subscriber)
	r.counts = make(map[topic.Topic]int)
	r.matcher.Clear()
	return removed
}
