package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Queue runs deferred tasks on background workers, after the caller's
// current call stack has returned. With the default single worker, tasks
// run strictly in submission order.
type Queue struct {
	// Configuration
	queueSize   int
	workerCount int

	// State
	mu      sync.Mutex // protects tasks channel creation/destruction
	tasks   chan queuedTask
	running atomic.Bool
	wg      sync.WaitGroup

	// Pending tracks submitted but unfinished tasks for Drain.
	pendingMu sync.Mutex
	pending   int
	idle      []chan struct{}

	executor *Executor

	// Stats
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// queuedTask is a task waiting for a worker.
type queuedTask struct {
	ctx     context.Context
	subject any
	task    Task
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueSize sets the task buffer size.
func WithQueueSize(size int) QueueOption {
	return func(q *Queue) {
		if size > 0 {
			q.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines. More than one
// worker gives up submission ordering.
func WithWorkerCount(count int) QueueOption {
	return func(q *Queue) {
		if count > 0 {
			q.workerCount = count
		}
	}
}

// WithQueueExecutor sets the executor used to run tasks.
func WithQueueExecutor(e *Executor) QueueOption {
	return func(q *Queue) {
		if e != nil {
			q.executor = e
		}
	}
}

// NewQueue creates a stopped queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		queueSize:   1024,
		workerCount: 1,
		executor:    NewExecutor(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start starts the workers.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running.Load() {
		return ErrAlreadyRunning
	}

	q.tasks = make(chan queuedTask, q.queueSize)
	q.running.Store(true)

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(q.tasks)
	}
	return nil
}

// Stop stops accepting tasks and waits for queued ones to finish or for
// ctx to be done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running.Load() {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.running.Store(false)
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue submits a task. Returns ErrQueueFull when the buffer is at
// capacity and ErrNotRunning when the queue is stopped.
func (q *Queue) Enqueue(ctx context.Context, subject any, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running.Load() {
		return ErrNotRunning
	}

	q.addPending(1)
	select {
	case q.tasks <- queuedTask{ctx: ctx, subject: subject, task: task}:
		q.enqueued.Add(1)
		return nil
	default:
		q.addPending(-1)
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Drain blocks until every submitted task has finished or ctx is done.
// Tasks submitted by running tasks are waited for as well.
func (q *Queue) Drain(ctx context.Context) error {
	q.pendingMu.Lock()
	if q.pending == 0 {
		q.pendingMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.idle = append(q.idle, ch)
	q.pendingMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) addPending(delta int) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	q.pending += delta
	if q.pending == 0 {
		for _, ch := range q.idle {
			close(ch)
		}
		q.idle = nil
	}
}

// worker processes tasks until the channel is closed.
func (q *Queue) worker(tasks <-chan queuedTask) {
	defer q.wg.Done()
	for t := range tasks {
		q.execute(t)
	}
}

func (q *Queue) execute(t queuedTask) {
	defer q.addPending(-1)

	result := q.executor.Run(t.ctx, t.subject, t.task)
	q.processed.Add(1)
	q.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Panicked:
		q.panicked.Add(1)
	case result.Error != nil:
		q.failed.Add(1)
	}
}

// IsRunning returns true if the queue accepts tasks.
func (q *Queue) IsRunning() bool {
	return q.running.Load()
}

// Depth returns the number of tasks waiting for a worker.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running.Load() {
		return 0
	}
	return len(q.tasks)
}

// QueueStats contains statistics for a queue.
type QueueStats struct {
	Enqueued      uint64
	Processed     uint64
	Failed        uint64
	Panicked      uint64
	Dropped       uint64
	Depth         int
	TotalDuration time.Duration
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued:      q.enqueued.Load(),
		Processed:     q.processed.Load(),
		Failed:        q.failed.Load(),
		Panicked:      q.panicked.Load(),
		Dropped:       q.dropped.Load(),
		Depth:         q.Depth(),
		TotalDuration: time.Duration(q.totalTimeNs.Load()),
	}
}
