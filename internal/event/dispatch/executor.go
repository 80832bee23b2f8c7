package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor runs handlers and tasks with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
	timeout      time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// WithExecutorTimeout bounds every execution with a context deadline.
// Handlers must watch ctx for the deadline to have any effect.
func WithExecutorTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs handler with event. It is Run with the handler bound.
func (e *Executor) Execute(ctx context.Context, event any, handler Handler) Result {
	return e.run(ctx, event, func(ctx context.Context) error {
		return handler.Handle(ctx, event)
	})
}

// Run executes a task. The subject is only used for panic reporting.
func (e *Executor) Run(ctx context.Context, subject any, task Task) Result {
	return e.run(ctx, subject, task)
}

func (e *Executor) run(ctx context.Context, subject any, fn func(context.Context) error) (result Result) {
	if err := ctx.Err(); err != nil {
		return Result{Error: err, Skipped: true}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)

		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		result.Success = false
		result.Panicked = true
		result.PanicValue = r
		result.PanicStack = stack

		// A misbehaving panic handler must not take the caller down with it.
		func() {
			defer func() { _ = recover() }()
			e.panicHandler(subject, r, stack)
		}()
	}()

	if err := fn(ctx); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}
