package topic

import "sync"

// Matcher stores topic patterns in a two-level trie (emitter, then name)
// and answers which patterns apply to a topic. It is safe for concurrent use.
type Matcher struct {
	mu   sync.RWMutex
	root *trieNode
}

// trieNode represents a node in the pattern trie.
type trieNode struct {
	children map[string]*trieNode
	patterns []Topic // Patterns that terminate at this node
}

// newTrieNode creates a new trie node.
func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[string]*trieNode),
	}
}

// isEmpty returns true if the node has no children and no patterns.
func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && len(n.patterns) == 0
}

// NewMatcher creates a new topic matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		root: newTrieNode(),
	}
}

// Add adds a pattern to the matcher.
// Returns true if the pattern was added, false if it already existed or is invalid.
func (m *Matcher) Add(pattern Topic) bool {
	if !pattern.IsValid() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newTrieNode()
		}
		node = node.children[seg]
	}

	for _, p := range node.patterns {
		if p == pattern {
			return false
		}
	}
	node.patterns = append(node.patterns, pattern)
	return true
}

// Remove removes a pattern and prunes the emptied branch.
// Returns true if the pattern was removed.
func (m *Matcher) Remove(pattern Topic) bool {
	if !pattern.IsValid() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	segs := pattern.Segments()
	emitterNode := m.root.children[segs[0]]
	if emitterNode == nil {
		return false
	}
	nameNode := emitterNode.children[segs[1]]
	if nameNode == nil {
		return false
	}

	found := false
	for i, p := range nameNode.patterns {
		if p == pattern {
			nameNode.patterns = append(nameNode.patterns[:i], nameNode.patterns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	if nameNode.isEmpty() {
		delete(emitterNode.children, segs[1])
	}
	if emitterNode.isEmpty() {
		delete(m.root.children, segs[0])
	}
	return true
}

// Has returns true if the exact pattern exists in the matcher.
func (m *Matcher) Has(pattern Topic) bool {
	if !pattern.IsValid() {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		node = node.children[seg]
		if node == nil {
			return false
		}
	}
	for _, p := range node.patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// Match returns all patterns that match the given concrete topic.
func (m *Matcher) Match(eventTopic Topic) []Topic {
	return m.collect(eventTopic, false)
}

// Overlapping returns all patterns that overlap t, treating wildcards in t
// as matching any stored segment too.
func (m *Matcher) Overlapping(t Topic) []Topic {
	return m.collect(t, true)
}

func (m *Matcher) collect(t Topic, symmetric bool) []Topic {
	if !t.IsValid() {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Topic
	m.matchRecursive(m.root, t.Segments(), 0, symmetric, &matches)
	return matches
}

// matchRecursive walks every branch that can match segments[depth:].
func (m *Matcher) matchRecursive(node *trieNode, segments []string, depth int, symmetric bool, matches *[]Topic) {
	if node == nil {
		return
	}
	if depth == len(segments) {
		*matches = append(*matches, node.patterns...)
		return
	}

	segment := segments[depth]

	if symmetric && segment == Wildcard {
		for _, child := range node.children {
			m.matchRecursive(child, segments, depth+1, symmetric, matches)
		}
		return
	}

	if child := node.children[segment]; child != nil {
		m.matchRecursive(child, segments, depth+1, symmetric, matches)
	}
	if segment != Wildcard {
		if child := node.children[Wildcard]; child != nil {
			m.matchRecursive(child, segments, depth+1, symmetric, matches)
		}
	}
}

// Patterns returns all patterns in the matcher.
func (m *Matcher) Patterns() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var patterns []Topic
	for _, emitterNode := range m.root.children {
		for _, nameNode := range emitterNode.children {
			patterns = append(patterns, nameNode.patterns...)
		}
	}
	return patterns
}

// Count returns the number of patterns in the matcher.
func (m *Matcher) Count() int {
	return len(m.Patterns())
}

// Clear removes all patterns from the matcher.
func (m *Matcher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.root = newTrieNode()
}
