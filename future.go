package retune

import (
	"context"
	"sync/atomic"
)

// Future is the result of an asynchronous operation. It is resolved exactly
// once, with a value or an error.
type Future[T any] struct {
	done     chan struct{}
	resolved atomic.Bool
	value    T
	err      error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve stores the outcome and wakes all waiters. A second call panics.
func (f *Future[T]) resolve(v T, err error) {
	if !f.resolved.CompareAndSwap(false, true) {
		panic("retune: future resolved twice")
	}
	f.value, f.err = v, err
	close(f.done)
}

// Done returns a channel that is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx is done. Giving up on the
// wait does not cancel the operation; cancel the context passed to the
// operation for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrPending if the
// future has not resolved yet.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, ErrPending
	}
}
