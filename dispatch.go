package smbc

import (
	"context"
	"sync"
)

// dispatchQueueDepth bounds the number of requests waiting for the
// worker before Dispatch blocks.
const dispatchQueueDepth = 64

// Future is the pending result of a dispatched operation. A Future is
// resolved exactly once, by the context's dispatch worker; Await and
// Done may be used from any number of goroutines.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is canceled.
// Cancellation abandons the wait, not the operation: the dispatched
// call still runs to completion on the worker.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// dispatchRequest carries one unit of work to the worker. A nil run
// function is the shutdown sentinel.
type dispatchRequest struct {
	run func()
}

type dispatcher struct {
	reqs chan dispatchRequest
	done chan struct{}

	// mu fences enqueue against shutdown so no request can land in the
	// queue behind the sentinel. The worker never takes it.
	mu      sync.RWMutex
	closing bool
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		reqs: make(chan dispatchRequest, dispatchQueueDepth),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

// loop is the worker. Requests run strictly in arrival order; a request
// that fails does not affect the ones behind it.
func (d *dispatcher) loop() {
	defer close(d.done)
	for req := range d.reqs {
		if req.run == nil {
			return
		}
		req.run()
	}
}

// enqueue queues req unless shutdown has begun. It reports whether the
// request was accepted.
func (d *dispatcher) enqueue(req dispatchRequest) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closing {
		return false
	}
	d.reqs <- req
	return true
}

// shutdown stops the worker after every previously queued request has
// run, and waits for it to exit. Safe to call more than once.
func (d *dispatcher) shutdown() {
	d.mu.Lock()
	first := !d.closing
	d.closing = true
	d.mu.Unlock()

	if first {
		d.reqs <- dispatchRequest{}
	}
	<-d.done
}

// EnableAsync switches the context into asynchronous mode, starting its
// dispatch worker. From this point operations should be funneled
// through Dispatch; issuing direct calls from other goroutines
// alongside dispatched ones is not supported. Chainable.
func (c *Context) EnableAsync() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.closing || c.disp != nil {
		return c
	}
	c.disp = newDispatcher()
	return c
}

// Async reports whether the context has a running dispatch worker.
func (c *Context) Async() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disp != nil && !c.closed
}

// Dispatch queues op on the context's worker and returns its Future.
// Requests run in the order they were dispatched. If the context is
// closed the Future resolves immediately with ErrClosed; if async mode
// was never enabled, with ErrAsyncNotEnabled.
func Dispatch[T any](c *Context, op func() (T, error)) *Future[T] {
	fut := newFuture[T]()
	var zero T

	c.mu.Lock()
	closed, disp := c.closed, c.disp
	c.mu.Unlock()

	switch {
	case closed:
		fut.resolve(zero, ErrClosed)
	case disp == nil:
		fut.resolve(zero, ErrAsyncNotEnabled)
	default:
		accepted := disp.enqueue(dispatchRequest{run: func() {
			fut.resolve(op())
		}})
		if !accepted {
			fut.resolve(zero, ErrClosed)
		}
	}
	return fut
}

// Flush blocks until every operation dispatched before the call has
// completed. It works by queueing a no-op and awaiting it.
func (c *Context) Flush(ctx context.Context) error {
	_, err := Dispatch(c, func() (struct{}, error) {
		return struct{}{}, nil
	}).Await(ctx)
	return err
}
