package delegate

import (
	"regexp"
	"sync"

	"github.com/andybalholm/cascadia"

	"github.com/dshills/uidelegate/internal/dom"
	"github.com/dshills/uidelegate/internal/event"
)

var (
	// exactIDPattern matches selectors that name a single id, like "#menu".
	// Any id without whitespace qualifies, "#item.1" included; such
	// selectors compare ids and never reach the selector engine.
	exactIDPattern = regexp.MustCompile(`^#\S+$`)

	// anchorIDPattern extracts the id a selector is anchored on: everything
	// after the first '#' up to whitespace.
	anchorIDPattern = regexp.MustCompile(`#(\S+)`)
)

// NativeEvent is the part of a native event the engine reads. Events may
// also implement StopPropagation() and PreventDefault(); the engine calls
// them when present.
type NativeEvent interface {
	Type() string
	Target() *dom.Node
}

type filterState int

const (
	uncompiled filterState = iota
	compiled
)

// Filter is the delegation filter of one selector subscription. It walks
// from the event's deepest target towards the root and matches at the
// first node the selector applies to.
//
// The selector is compiled once; a Filter built by NewFilter compiles on
// its first match. Filters are safe for concurrent use.
type Filter struct {
	selector string
	outside  bool

	// exactID is set for "#id" selectors, which compare ids instead of
	// running the selector engine.
	exactID string

	// anchorID is the id of the container node; empty means the document.
	anchorID string

	// user is an extra predicate from the subscription, checked after the
	// selector.
	user event.Filter

	mu        sync.Mutex
	state     filterState
	matcher   cascadia.Matcher
	err       error
	container *dom.Node
}

// NewFilter creates an uncompiled filter for selector. Outside filters
// match when no node on the target's ancestor chain matches.
func NewFilter(selector string, outside bool) *Filter {
	f := &Filter{
		selector: selector,
		outside:  outside,
	}
	if exactIDPattern.MatchString(selector) {
		f.exactID = selector[1:]
	}
	if m := anchorIDPattern.FindStringSubmatch(selector); m != nil {
		f.anchorID = m[1]
	}
	return f
}

// Selector returns the raw selector.
func (f *Filter) Selector() string {
	return f.selector
}

// Outside reports whether the match result is inverted.
func (f *Filter) Outside() bool {
	return f.outside
}

// AnchorID returns the id of the container node, or "" when the container
// is the document.
func (f *Filter) AnchorID() string {
	return f.anchorID
}

// Compiled reports whether the selector was compiled.
func (f *Filter) Compiled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == compiled
}

// Compile compiles the selector. Calling it again returns the first result.
func (f *Filter) Compile() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compileLocked()
}

func (f *Filter) compileLocked() error {
	if f.state == compiled {
		return f.err
	}
	f.state = compiled
	if f.exactID != "" {
		return nil
	}
	sel, err := cascadia.Compile(f.selector)
	if err != nil {
		f.err = &dom.SelectorError{Selector: f.selector, Err: err}
		return f.err
	}
	f.matcher = sel
	return nil
}

// Match implements event.Filter. Payloads that are not native events
// never match.
func (f *Filter) Match(payload any) bool {
	ev, ok := payload.(NativeEvent)
	if !ok {
		return false
	}
	match, _ := f.Resolve(ev)
	return match
}

// Resolve reports whether ev passes the filter and, for a matching
// non-outside filter, returns the node that matched the selector.
func (f *Filter) Resolve(ev NativeEvent) (bool, *dom.Node) {
	f.mu.Lock()
	err := f.compileLocked()
	matcher := f.matcher
	f.mu.Unlock()
	if err != nil {
		return false, nil
	}

	target := ev.Target()
	if target == nil {
		return false, nil
	}

	var found *dom.Node
	for n := target; n != nil && !n.IsDocument(); n = n.Parent() {
		var hit bool
		if f.exactID != "" {
			hit = n.ID() == f.exactID
		} else {
			hit = n.MatchesSelector(matcher)
		}
		if hit {
			found = n
			break
		}
	}

	if f.user != nil && !f.user.Match(ev) {
		return false, nil
	}
	if f.outside {
		return found == nil, nil
	}
	return found != nil, found
}

// Container returns the node the subscription is delegated from: the
// document, or the element named by the selector's id anchor. An anchor
// that is not in the document yet yields nil and is looked up again on
// the next call.
func (f *Filter) Container(doc Document) *dom.Node {
	if f.anchorID == "" {
		return doc.Root()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.container; c != nil && c.ID() == f.anchorID && c.Attached() {
		return c
	}
	f.container = doc.GetElementByID(f.anchorID)
	return f.container
}
