package metrics

import (
	"go.uber.org/atomic"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/event"
)

// ExecutorMetrics defines metrics over the entire runtime of the executor.
type ExecutorMetrics struct {
	// The number of certificates that were handed off to execution.
	ReadyCertificates atomic.Uint64
	// The accumulated time certificates spent waiting for their inputs, in nanoseconds.
	ReadyLatencyNanoseconds atomic.Uint64
	// The number of ready certificates that were dispatched to the execution workers.
	DispatchedCertificates atomic.Uint64
	// The number of certificates that were dropped, by reason.
	SkippedCertificates *shrinkingmap.ShrinkingMap[txmanager.SkipReason, *atomic.Uint64]
	// The number of rejections reported by consensus.
	RejectedTransactions atomic.Uint64
	// The number of rejected positions that were evicted after leaving the window.
	ExpiredPositions atomic.Uint64
	// The number of resolved waits for a rejection, by reason.
	ResolvedWaits *shrinkingmap.ShrinkingMap[rejections.Reason, *atomic.Uint64]
}

// NewExecutorMetrics creates a new ExecutorMetrics instance.
func NewExecutorMetrics() *ExecutorMetrics {
	return &ExecutorMetrics{
		SkippedCertificates: shrinkingmap.New[txmanager.SkipReason, *atomic.Uint64](),
		ResolvedWaits:       shrinkingmap.New[rejections.Reason, *atomic.Uint64](),
	}
}

// TrackTransactionManager hooks the counters to the events of a TransactionManager.
func (e *ExecutorMetrics) TrackTransactionManager(events *txmanager.Events, opts ...event.Option) (unhook func()) {
	return lo.Batch(
		events.CertificateReady.Hook(func(pendingCertificate *txmanager.PendingCertificate) {
			e.ReadyCertificates.Inc()
			e.ReadyLatencyNanoseconds.Add(uint64(pendingCertificate.Stats.ReadyLatency().Nanoseconds()))
		}, opts...).Unhook,

		events.CertificateSkipped.Hook(func(_ *model.Certificate, reason txmanager.SkipReason) {
			counter(e.SkippedCertificates, reason).Inc()
		}, opts...).Unhook,
	)
}

// TrackRejectionTracker hooks the counters to the events of a rejection Tracker.
func (e *ExecutorMetrics) TrackRejectionTracker(events *rejections.Events, opts ...event.Option) (unhook func()) {
	return lo.Batch(
		events.TransactionRejected.Hook(func(_ model.TransactionPosition) {
			e.RejectedTransactions.Inc()
		}, opts...).Unhook,

		events.RoundsExpired.Hook(func(_ model.Round, evictedPositions int) {
			e.ExpiredPositions.Add(uint64(evictedPositions))
		}, opts...).Unhook,

		events.WaitResolved.Hook(func(reason rejections.Reason) {
			counter(e.ResolvedWaits, reason).Inc()
		}, opts...).Unhook,
	)
}

// SkippedCertificatesByReason returns the number of skipped certificates for the given reason.
func (e *ExecutorMetrics) SkippedCertificatesByReason(reason txmanager.SkipReason) uint64 {
	return load(e.SkippedCertificates, reason)
}

// ResolvedWaitsByReason returns the number of resolved waits for the given reason.
func (e *ExecutorMetrics) ResolvedWaitsByReason(reason rejections.Reason) uint64 {
	return load(e.ResolvedWaits, reason)
}

func counter[K comparable](counters *shrinkingmap.ShrinkingMap[K, *atomic.Uint64], key K) *atomic.Uint64 {
	value, _ := counters.GetOrCreate(key, func() *atomic.Uint64 {
		return atomic.NewUint64(0)
	})

	return value
}

func load[K comparable](counters *shrinkingmap.ShrinkingMap[K, *atomic.Uint64], key K) uint64 {
	if value, exists := counters.Get(key); exists {
		return value.Load()
	}

	return 0
}
