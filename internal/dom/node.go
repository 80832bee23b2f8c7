package dom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Emitter is the emitter name every node reports.
const Emitter = "UI"

// Node is an element (or the document itself) of a Document. A Document
// hands out exactly one *Node per underlying html node, so nodes can be
// compared with ==.
type Node struct {
	doc *Document
	n   *html.Node
}

// Document returns the document the node belongs to.
func (n *Node) Document() *Document {
	return n.doc
}

// HTML returns the underlying html node.
func (n *Node) HTML() *html.Node {
	return n.n
}

// EmitterName reports the emitter of events fired at the node.
func (n *Node) EmitterName() string {
	return Emitter
}

// IsDocument reports whether n is the document node.
func (n *Node) IsDocument() bool {
	return n.n.Type == html.DocumentNode
}

// Tag returns the lowercase element name, or "#document".
func (n *Node) Tag() string {
	if n.IsDocument() {
		return "#document"
	}
	return n.n.Data
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return attr(n.n, name)
}

func attr(hn *html.Node, name string) (string, bool) {
	for _, a := range hn.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// ID returns the id attribute, empty when absent.
func (n *Node) ID() string {
	id, _ := n.Attr("id")
	return id
}

// SetAttr sets an attribute, replacing an existing value.
func (n *Node) SetAttr(name, value string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	for i, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.n.Attr[i].Val = value
			return
		}
	}
	n.n.Attr = append(n.n.Attr, html.Attribute{Key: name, Val: value})
}

// Parent returns the parent node, or nil for the document and for
// detached nodes.
func (n *Node) Parent() *Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.doc.wrap(n.n.Parent)
}

// Children returns the element children in document order.
func (n *Node) Children() []*Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()

	var out []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, n.doc.wrap(c))
		}
	}
	return out
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	if other == nil {
		return false
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	for p := other.n; p != nil; p = p.Parent {
		if p == n.n {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of n.
func (n *Node) Depth() int {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	depth := 0
	for p := n.n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// Attached reports whether n is connected to its document's root.
func (n *Node) Attached() bool {
	return n.doc.Root().Contains(n)
}

// Matches reports whether n matches the CSS selector.
// The document node never matches.
func (n *Node) Matches(selector string) (bool, error) {
	sel, err := n.doc.compile(selector)
	if err != nil {
		return false, err
	}
	if n.n.Type != html.ElementNode {
		return false, nil
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return sel.Match(n.n), nil
}

// MatchesSelector is Matches for a selector compiled by the caller.
func (n *Node) MatchesSelector(sel cascadia.Matcher) bool {
	if n.n.Type != html.ElementNode {
		return false
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return sel.Match(n.n)
}

// String returns a short description such as "div#outer.box".
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(n.Tag())
	if id := n.ID(); id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	if class, ok := n.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteString(".")
			b.WriteString(c)
		}
	}
	return b.String()
}
