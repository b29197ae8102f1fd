package notifyread

import (
	"context"

	"go.uber.org/atomic"
)

// Registration is a one-shot wake handle that receives exactly one value once its key is notified.
type Registration[V any] struct {
	done      chan V
	cancel    func()
	cancelled atomic.Bool
}

func newRegistration[V any](cancel func()) *Registration[V] {
	return &Registration[V]{
		done:   make(chan V, 1),
		cancel: cancel,
	}
}

// Done returns a channel that receives the notified value.
func (r *Registration[V]) Done() <-chan V {
	return r.done
}

// Wait blocks until the registration is notified or the context is done. The registration is cancelled if the context
// is done first.
func (r *Registration[V]) Wait(ctx context.Context) (value V, err error) {
	select {
	case value = <-r.done:
		return value, nil
	case <-ctx.Done():
		r.Cancel()

		return value, ctx.Err()
	}
}

// Cancel removes the registration from its registry. It is safe to call Cancel multiple times and after the
// registration was notified.
func (r *Registration[V]) Cancel() {
	if r.cancelled.CompareAndSwap(false, true) {
		r.cancel()
	}
}

func (r *Registration[V]) resolve(value V) {
	r.done <- value
}
