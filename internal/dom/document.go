package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Listener receives events dispatched at document level.
type Listener func(ev *Event)

// ListenerID identifies a registered capture listener.
type ListenerID uint64

type registeredListener struct {
	id ListenerID
	fn Listener
}

// Document is a parsed HTML tree with document-level capture listeners.
//
// Tree reads and mutations are guarded, but a document is meant to be
// driven from one goroutine at a time, the way a browser drives its DOM.
type Document struct {
	// mu guards the html tree.
	mu   sync.RWMutex
	root *html.Node

	wmu   sync.Mutex
	nodes map[*html.Node]*Node

	lmu       sync.Mutex
	listeners map[string][]registeredListener
	defaults  map[string]Listener
	nextID    ListenerID

	smu       sync.Mutex
	selectors map[string]cascadia.Selector
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return newDocument(root), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParseString is ParseString for fixtures known to be valid.
func MustParseString(s string) *Document {
	doc, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return doc
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		nodes:     make(map[*html.Node]*Node),
		listeners: make(map[string][]registeredListener),
		defaults:  make(map[string]Listener),
		selectors: make(map[string]cascadia.Selector),
	}
}

// wrap returns the unique Node for hn.
func (d *Document) wrap(hn *html.Node) *Node {
	if hn == nil {
		return nil
	}
	d.wmu.Lock()
	defer d.wmu.Unlock()
	if n, ok := d.nodes[hn]; ok {
		return n
	}
	n := &Node{doc: d, n: hn}
	d.nodes[hn] = n
	return n
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.wrap(d.root)
}

// Body returns the body element, or nil.
func (d *Document) Body() *Node {
	n, err := d.Query("body")
	if err != nil {
		return nil
	}
	return n
}

// GetElementByID returns the first attached element with the given id,
// or nil.
func (d *Document) GetElementByID(id string) *Node {
	if id == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(findByID(d.root, id))
}

func findByID(hn *html.Node, id string) *html.Node {
	if hn.Type == html.ElementNode {
		if v, ok := attr(hn, "id"); ok && v == id {
			return hn
		}
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// compile returns the cached compiled selector.
func (d *Document) compile(selector string) (cascadia.Selector, error) {
	d.smu.Lock()
	defer d.smu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &SelectorError{Selector: selector, Err: err}
	}
	d.selectors[selector] = sel
	return sel, nil
}

// Query returns the first element matching selector in document order.
func (d *Document) Query(selector string) (*Node, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	hn := sel.MatchFirst(d.root)
	if hn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return d.wrap(hn), nil
}

// QueryAll returns every element matching selector in document order.
func (d *Document) QueryAll(selector string) ([]*Node, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	matches := sel.MatchAll(d.root)
	out := make([]*Node, len(matches))
	for i, hn := range matches {
		out[i] = d.wrap(hn)
	}
	return out, nil
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string, attrs map[string]string) *Node {
	hn := &html.Node{
		Type: html.ElementNode,
		Data: strings.ToLower(tag),
	}
	for k, v := range attrs {
		hn.Attr = append(hn.Attr, html.Attribute{Key: k, Val: v})
	}
	return d.wrap(hn)
}

// AppendChild appends a detached child to parent.
func (d *Document) AppendChild(parent, child *Node) error {
	if parent.doc != d || child.doc != d {
		return ErrForeignNode
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if child.n.Parent != nil {
		return fmt.Errorf("%w: %s is already attached", ErrHierarchy, child.n.Data)
	}
	for p := parent.n; p != nil; p = p.Parent {
		if p == child.n {
			return fmt.Errorf("%w: cannot append a node to its own subtree", ErrHierarchy)
		}
	}
	parent.n.AppendChild(child.n)
	return nil
}

// RemoveChild detaches child from parent. The child keeps its subtree
// and may be appended again.
func (d *Document) RemoveChild(parent, child *Node) error {
	if parent.doc != d || child.doc != d {
		return ErrForeignNode
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if child.n.Parent != parent.n {
		return ErrNotChild
	}
	parent.n.RemoveChild(child.n)
	return nil
}

// Remove detaches n from its parent, if any.
func (d *Document) Remove(n *Node) error {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	return d.RemoveChild(parent, n)
}

// AddCaptureListener registers fn for events of the given type. Listeners
// run in registration order before the default action.
func (d *Document) AddCaptureListener(eventType string, fn Listener) ListenerID {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[eventType] = append(d.listeners[eventType], registeredListener{id: id, fn: fn})
	return id
}

// RemoveCaptureListener removes a listener. It reports whether it was
// registered.
func (d *Document) RemoveCaptureListener(eventType string, id ListenerID) bool {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	list := d.listeners[eventType]
	for i, l := range list {
		if l.id == id {
			next := make([]registeredListener, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(d.listeners, eventType)
			} else {
				d.listeners[eventType] = next
			}
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners for an event type.
func (d *Document) ListenerCount(eventType string) int {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	return len(d.listeners[eventType])
}

// SetDefaultAction installs the action run after the listeners of an
// event type unless one of them prevented the default.
func (d *Document) SetDefaultAction(eventType string, fn Listener) {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if fn == nil {
		delete(d.defaults, eventType)
		return
	}
	d.defaults[eventType] = fn
}

// Dispatch delivers ev to the capture listeners registered for its type,
// then runs the default action and finally the tasks queued with
// Event.AfterDefault. Listeners added during dispatch do not see the
// event. It returns false when the default was prevented.
func (d *Document) Dispatch(ev *Event) bool {
	d.lmu.Lock()
	list := d.listeners[ev.typ]
	def := d.defaults[ev.typ]
	d.lmu.Unlock()

	for _, l := range list {
		l.fn(ev)
		if ev.immediateStopped {
			break
		}
	}

	defer func() {
		tasks := ev.afterDefault
		ev.afterDefault = nil
		for _, fn := range tasks {
			fn()
		}
	}()

	if ev.defaultPrevented {
		return false
	}
	if def != nil {
		def(ev)
	}
	return true
}

// Fire creates an event of the given type at target and dispatches it.
func (d *Document) Fire(eventType string, target *Node) *Event {
	ev := NewEvent(eventType, target)
	d.Dispatch(ev)
	return ev
}
