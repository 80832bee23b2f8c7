package delegate

import "sync"

// turn keeps dispatches from overlapping the after phases they scheduled.
// The outermost dispatch waits for every after phase queued during it;
// dispatches made from subscribers run nested and never wait.
type turn struct {
	mu      sync.Mutex
	depth   int
	pending int
	waiters []chan struct{}
}

// enter marks the start of a dispatch or after phase.
func (t *turn) enter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.depth++
}

func (t *turn) leave() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.depth--
}

// nested reports whether a dispatch or after phase is running.
func (t *turn) nested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depth > 0
}

// schedule counts an after phase handed to the deferred queue.
func (t *turn) schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending++
}

// done marks a scheduled after phase finished.
func (t *turn) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending--
	if t.pending > 0 {
		return
	}
	for _, ch := range t.waiters {
		close(ch)
	}
	t.waiters = nil
}

// idle returns a channel closed once no after phase is pending, or nil
// when none is.
func (t *turn) idle() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == 0 {
		return nil
	}
	ch := make(chan struct{})
	t.waiters = append(t.waiters, ch)
	return ch
}
