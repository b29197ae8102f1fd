package txmanager

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// ErrReadyQueueClosed is the panic value of a Push to a closed ReadyQueue.
var ErrReadyQueueClosed = ierrors.New("ready queue is closed")

// ReadyQueue is the unbounded hand-off of ready certificates to the execution. It has a single consumer that reads
// from Out. Pushing to a closed queue panics, since the consumer has to outlive all producers.
type ReadyQueue struct {
	// buffer contains the certificates that were not forwarded to out yet.
	buffer []*PendingCertificate

	// closed is true once Close was called.
	closed bool

	// pushed wakes up the forwarder.
	pushed chan struct{}

	// out is closed after Close was called and the buffer was drained.
	out chan *PendingCertificate

	// mutex guards buffer and closed.
	mutex syncutils.Mutex
}

// NewReadyQueue creates a new ReadyQueue.
func NewReadyQueue() *ReadyQueue {
	r := &ReadyQueue{
		pushed: make(chan struct{}, 1),
		out:    make(chan *PendingCertificate),
	}

	go r.forward()

	return r
}

// Push adds a ready certificate to the queue.
func (r *ReadyQueue) Push(pendingCertificate *PendingCertificate) {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()

		panic(ierrors.Wrapf(ErrReadyQueueClosed, "failed to hand off %s", pendingCertificate.Certificate.Digest()))
	}

	r.buffer = append(r.buffer, pendingCertificate)
	r.mutex.Unlock()

	r.wakeForwarder()
}

// Out returns the channel that the consumer reads the ready certificates from.
func (r *ReadyQueue) Out() <-chan *PendingCertificate {
	return r.out
}

// Len returns the number of buffered certificates.
func (r *ReadyQueue) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.buffer)
}

// Close closes the queue. Certificates that were pushed before are still delivered.
func (r *ReadyQueue) Close() {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()

		return
	}
	r.closed = true
	r.mutex.Unlock()

	r.wakeForwarder()
}

func (r *ReadyQueue) forward() {
	defer close(r.out)

	for {
		r.mutex.Lock()
		if len(r.buffer) == 0 {
			closed := r.closed
			r.mutex.Unlock()

			if closed {
				return
			}

			<-r.pushed

			continue
		}

		next := r.buffer[0]
		r.buffer[0] = nil
		r.buffer = r.buffer[1:]
		r.mutex.Unlock()

		r.out <- next
	}
}

func (r *ReadyQueue) wakeForwarder() {
	select {
	case r.pushed <- struct{}{}:
	default:
	}
}
