package mcphost

import (
	"context"
	"sync"
)

// Runner is the synchronous facade over one session's asynchronous core. On
// creation it starts exactly one background goroutine that executes submitted
// units of work one at a time, in arrival order, for the remainder of the
// runner's life. Callers on any goroutine submit work with Run and block until
// their unit completes; because every unit corresponds to one full
// request/response round trip on the shared transport, callers never observe
// interleavings of unrelated calls.
//
// The request identifier counter and all session I/O are touched only on the
// runner's goroutine, so the protocol client needs no locking of its own.
type Runner struct {
	jobs chan runnerJob
	stop chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

type runnerJob struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	errs chan error
}

// NewRunner creates a runner and starts its background worker.
func NewRunner() *Runner {
	r := &Runner{
		jobs: make(chan runnerJob),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go r.work()
	return r
}

// Run executes fn on the runner's goroutine and blocks until it completes,
// returning fn's error in the calling goroutine. It may be called from any
// goroutine, including concurrently; concurrent calls are individually
// serialized in the order they reach the worker.
//
// Results are carried out through fn's closure. Run fails with
// ErrRunnerClosed after Close, and with the context's error if ctx is done
// before the work is picked up.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	job := runnerJob{
		ctx:  ctx,
		fn:   fn,
		errs: make(chan error, 1),
	}

	select {
	case <-r.stop:
		return ErrRunnerClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.jobs <- job:
	}

	// The worker always delivers exactly one error per accepted job, so this
	// receive cannot block forever even across Close.
	return <-job.errs
}

// Close signals the worker to stop, waits for it to exit, and releases it.
// It is idempotent; calls after the first are no-ops.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done
	})
}

func (r *Runner) work() {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return
		case job := <-r.jobs:
			job.errs <- job.fn(job.ctx)
		}
	}
}
