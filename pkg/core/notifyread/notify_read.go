package notifyread

import (
	"context"

	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// NotifyRead is a registry of waiters that are keyed by a value. A Notify wakes all waiters that are registered for the
// key at the time of the call. There is no history: waiters that register afterward are not affected.
//
// Callers must Register before they check the authoritative state for the key, so that a Notify that happens between
// the check and the registration is not missed.
type NotifyRead[K comparable, V any] struct {
	// pending contains the live registrations per key.
	pending *shrinkingmap.ShrinkingMap[K, map[uint64]*Registration[V]]

	// registrationIDCounter is used to assign unique IDs to registrations.
	registrationIDCounter atomic.Uint64

	// mutex is used to synchronize registrations with notifications.
	mutex syncutils.Mutex
}

// New creates a new NotifyRead registry.
func New[K comparable, V any]() *NotifyRead[K, V] {
	return &NotifyRead[K, V]{
		pending: shrinkingmap.New[K, map[uint64]*Registration[V]](),
	}
}

// Register registers interest in the given key.
func (n *NotifyRead[K, V]) Register(key K) *Registration[V] {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	registrationID := n.registrationIDCounter.Inc()
	registration := newRegistration[V](func() { n.deregister(key, registrationID) })

	registrations, _ := n.pending.GetOrCreate(key, func() map[uint64]*Registration[V] {
		return make(map[uint64]*Registration[V])
	})
	registrations[registrationID] = registration

	return registration
}

// RegisterAll registers interest in all the given keys.
func (n *NotifyRead[K, V]) RegisterAll(keys []K) []*Registration[V] {
	return lo.Map(keys, n.Register)
}

// Notify wakes all current registrations of the given key with the given value and returns the number of woken
// registrations.
func (n *NotifyRead[K, V]) Notify(key K, value V) int {
	n.mutex.Lock()
	registrations, exists := n.pending.DeleteAndReturn(key)
	n.mutex.Unlock()

	if !exists {
		return 0
	}

	for _, registration := range registrations {
		registration.resolve(value)
	}

	return len(registrations)
}

// Pending returns the number of keys that have live registrations.
func (n *NotifyRead[K, V]) Pending() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.pending.Size()
}

func (n *NotifyRead[K, V]) deregister(key K, registrationID uint64) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	registrations, exists := n.pending.Get(key)
	if !exists {
		return
	}

	delete(registrations, registrationID)
	if len(registrations) == 0 {
		n.pending.Delete(key)
	}
}

// WaitAll waits until all the given registrations were notified. All registrations are cancelled if the context is
// done first.
func WaitAll[V any](ctx context.Context, registrations []*Registration[V]) ([]V, error) {
	values := make([]V, 0, len(registrations))
	for i, registration := range registrations {
		value, err := registration.Wait(ctx)
		if err != nil {
			lo.ForEach(registrations[i+1:], (*Registration[V]).Cancel)

			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}
