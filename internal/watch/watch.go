// Package watch polls scenario and config files and reports changes once
// they have settled.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Op is the kind of change seen on a file.
type Op int

const (
	// OpWrite indicates the file was modified.
	OpWrite Op = iota

	// OpCreate indicates the file appeared.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is a settled change of one file.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler is called for every settled change.
type Handler func(Change)

// Watcher polls a set of files.
type Watcher struct {
	mu      sync.Mutex
	files   map[string]time.Time
	pending map[string]Change

	interval time.Duration
	settle   time.Duration
	now      func() time.Time
	stat     func(string) (os.FileInfo, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSettle sets how long a file must stay unchanged before its change is
// reported. Zero reports changes on the poll that sees them.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

// New creates a watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		files:    make(map[string]time.Time),
		pending:  make(map[string]Change),
		interval: 500 * time.Millisecond,
		settle:   100 * time.Millisecond,
		now:      time.Now,
		stat:     os.Stat,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add starts watching path. A missing file is watched for creation.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var mod time.Time
	info, err := w.stat(abs)
	switch {
	case err == nil:
		mod = info.ModTime()
	case !os.IsNotExist(err):
		return err
	}

	w.mu.Lock()
	w.files[abs] = mod
	w.mu.Unlock()
	return nil
}

// Files returns the number of watched files.
func (w *Watcher) Files() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

// Run polls until ctx is done, calling fn for each settled change from the
// calling goroutine.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, c := range w.Poll() {
				fn(c)
			}
		}
	}
}

// Poll checks every file once and returns the changes that settled.
func (w *Watcher) Poll() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for path, last := range w.files {
		if c, ok := w.check(path, last, now); ok {
			w.queue(c)
		}
	}

	var settled []Change
	for path, c := range w.pending {
		if now.Sub(c.Time) >= w.settle {
			settled = append(settled, c)
			delete(w.pending, path)
		}
	}
	return settled
}

func (w *Watcher) check(path string, last, now time.Time) (Change, bool) {
	info, err := w.stat(path)
	if os.IsNotExist(err) {
		if last.IsZero() {
			return Change{}, false
		}
		w.files[path] = time.Time{}
		return Change{Path: path, Op: OpRemove, Time: now}, true
	}
	if err != nil {
		return Change{}, false
	}

	mod := info.ModTime()
	switch {
	case last.IsZero():
		w.files[path] = mod
		return Change{Path: path, Op: OpCreate, Time: now}, true
	case !mod.Equal(last):
		w.files[path] = mod
		return Change{Path: path, Op: OpWrite, Time: now}, true
	}
	return Change{}, false
}

// queue coalesces c with a pending change of the same file: a removal
// wins, a creation stays a creation, and the time moves forward.
func (w *Watcher) queue(c Change) {
	prev, ok := w.pending[c.Path]
	if ok && c.Op == OpWrite {
		c.Op = prev.Op
	}
	if ok && prev.Op == OpRemove && c.Op == OpCreate {
		c.Op = OpWrite
	}
	w.pending[c.Path] = c
}
