package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running queue.
	ErrAlreadyRunning = errors.New("queue is already running")

	// ErrNotRunning is returned when operations are attempted on a stopped queue.
	ErrNotRunning = errors.New("queue is not running")

	// ErrQueueFull is returned when the queue is full and cannot accept more tasks.
	ErrQueueFull = errors.New("task queue is full")
)
