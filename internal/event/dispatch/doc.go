// Package dispatch runs event handlers and deferred tasks for the event bus.
//
// # Executor
//
// Executor runs a single handler or task in the caller's goroutine. It
// recovers panics, reports them to a configurable PanicHandler, and records
// the outcome and duration in a Result. A context that is already done
// skips execution.
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithExecutorPanicHandler(func(subject any, v any, stack []byte) {
//	        log.Printf("panic in handler: %v\n%s", v, stack)
//	    }),
//	)
//	result := exec.Execute(ctx, event, handler)
//	if !result.IsSuccess() {
//	    // Handle error or panic
//	}
//
// # Queue
//
// Queue runs tasks after the submitting call has returned. The bus uses
// it for the "after" phase of an emission: every task runs on a worker
// goroutine, one at a time by default, so tasks observe submission order.
//
//	q := dispatch.NewQueue()
//	_ = q.Start()
//	_ = q.Enqueue(ctx, nil, func(ctx context.Context) error { return nil })
//	_ = q.Drain(ctx)  // wait for everything submitted so far
//	_ = q.Stop(ctx)
package dispatch
