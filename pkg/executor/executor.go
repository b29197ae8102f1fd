package executor

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/iotaledger/consensus-executor/pkg/metrics"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/epochstore"
	rejectionsv1 "github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections/v1"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	txmanagerv1 "github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager/v1"
	"github.com/iotaledger/consensus-executor/pkg/requesthandler"
	"github.com/iotaledger/consensus-executor/pkg/storage/objectstore"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/runtime/event"
	"github.com/iotaledger/hive.go/runtime/module"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/runtime/workerpool"
)

// ErrShutdown is returned if transactions are submitted after the Executor was shut down.
var ErrShutdown = ierrors.New("executor is shut down")

// Executor wires the readiness scheduling of certified transactions and the tracking of consensus rejections to the
// object store and runs the consumer of the ready certificates.
type Executor struct {
	// ObjectStore contains the objects and the executed effects.
	ObjectStore *objectstore.Store

	// RejectionTracker keeps track of the transactions that were rejected by consensus.
	RejectionTracker *rejectionsv1.Tracker

	// TransactionManager schedules certificates once their inputs are available.
	TransactionManager *txmanagerv1.TransactionManager

	// RequestHandler answers the wait-for-effects requests of clients.
	RequestHandler *requesthandler.RequestHandler

	// Metrics contains the counters of the executor.
	Metrics *metrics.ExecutorMetrics

	// Workers contains the worker pools of the executor.
	Workers *workerpool.Group

	readyCertificates *txmanager.ReadyQueue
	executionPool     *workerpool.WorkerPool
	epochStore        *epochstore.Store
	epochMutex        syncutils.RWMutex
	isShutdown        atomic.Bool

	optsInitialEpoch            model.Epoch
	optsExecutionWorkerCount    int
	optsExecutionHandler        func(*txmanager.PendingCertificate)
	optsOverloadConfig          txmanager.OverloadConfig
	optsRejectionTrackerOptions []options.Option[rejectionsv1.Tracker]
	optsRequestHandlerOptions   []options.Option[requesthandler.RequestHandler]

	module.Module
}

// New creates a new Executor that keeps its objects and effects in the given store.
func New(subModule module.Module, store kvstore.KVStore, opts ...options.Option[Executor]) *Executor {
	return options.Apply(&Executor{
		Module:                   subModule,
		Metrics:                  metrics.NewExecutorMetrics(),
		Workers:                  workerpool.NewGroup("Executor"),
		readyCertificates:        txmanager.NewReadyQueue(),
		optsExecutionWorkerCount: 1,
		optsExecutionHandler:     func(*txmanager.PendingCertificate) {},
	}, opts, func(e *Executor) {
		e.executionPool = e.Workers.CreatePool("Execution", workerpool.WithWorkerCount(e.optsExecutionWorkerCount))
		e.epochStore = epochstore.New(context.Background(), e.optsInitialEpoch)

		e.ObjectStore = objectstore.New(e.NewSubModule("ObjectStore"), store)
		e.RejectionTracker = rejectionsv1.New(e.NewSubModule("RejectionTracker"), e.optsRejectionTrackerOptions...)
		e.TransactionManager = txmanagerv1.New(e.NewSubModule("TransactionManager"), e.ObjectStore, e.ObjectStore, e.readyCertificates)
		e.RequestHandler = requesthandler.New(e.RejectionTracker, e.ObjectStore, e.optsRequestHandlerOptions...)

		e.Metrics.TrackTransactionManager(e.TransactionManager.Events)
		e.Metrics.TrackRejectionTracker(e.RejectionTracker.Events)

		e.TransactionManager.Events.CertificateSkipped.Hook(func(certificate *model.Certificate, reason txmanager.SkipReason) {
			if reason == txmanager.SkipReasonAlreadyExecuted {
				e.CurrentEpochStore().RemoveSharedObjectVersions(certificate.Key())
			}
		}, event.WithWorkerPool(e.Workers.CreatePool("Pruning", workerpool.WithWorkerCount(1))))
		e.ConstructedEvent().Trigger()
	})
}

// CurrentEpochStore returns the store of the current epoch.
func (e *Executor) CurrentEpochStore() *epochstore.Store {
	e.epochMutex.RLock()
	defer e.epochMutex.RUnlock()

	return e.epochStore
}

// Reconfigure ends the current epoch and starts the next one. All certificates of the ended epoch that still wait for
// their inputs are dropped.
func (e *Executor) Reconfigure() (*epochstore.Store, error) {
	e.epochMutex.Lock()
	defer e.epochMutex.Unlock()

	if e.isShutdown.Load() {
		return nil, ErrShutdown
	}

	endedEpochStore := e.epochStore
	e.epochStore = epochstore.New(context.Background(), endedEpochStore.Epoch()+1)
	endedEpochStore.End()

	e.LogInfo("epoch changed", "endedEpoch", endedEpochStore.Epoch(), "epoch", e.epochStore.Epoch())

	return e.epochStore, nil
}

// Submit schedules the given certificates in the current epoch after they passed the admission control.
func (e *Executor) Submit(certificates ...*model.Certificate) error {
	e.epochMutex.RLock()
	defer e.epochMutex.RUnlock()

	if e.isShutdown.Load() {
		return ErrShutdown
	}

	for _, certificate := range certificates {
		if err := e.TransactionManager.CheckExecutionOverload(e.optsOverloadConfig, certificate.TransactionData()); err != nil {
			return ierrors.Wrapf(err, "admission of transaction %s failed", certificate.Digest())
		}
	}

	e.TransactionManager.Enqueue(certificates, e.epochStore)

	return nil
}

// Run dispatches the ready certificates to the execution workers until the context is done.
func (e *Executor) Run(ctx context.Context) error {
	stopShutdownOnDone := context.AfterFunc(ctx, e.Shutdown)
	defer stopShutdownOnDone()

	for pendingCertificate := range e.readyCertificates.Out() {
		e.Metrics.DispatchedCertificates.Inc()

		e.executionPool.Submit(func() {
			e.optsExecutionHandler(pendingCertificate)
		})
	}

	e.Workers.WaitChildren()
	e.Workers.Shutdown()
	e.StoppedEvent().Trigger()

	return ctx.Err()
}

// Shutdown ends the current epoch, waits for the scheduling goroutines to finish and closes the hand-off to the
// execution workers.
func (e *Executor) Shutdown() {
	e.epochMutex.Lock()
	if !e.isShutdown.CompareAndSwap(false, true) {
		e.epochMutex.Unlock()

		return
	}
	e.epochStore.End()
	e.epochMutex.Unlock()

	e.ShutdownEvent().Trigger()

	e.waitForScheduling()
	e.readyCertificates.Close()

	e.RequestHandler.Shutdown()
	e.TransactionManager.ShutdownEvent().Trigger()
	e.RejectionTracker.ShutdownEvent().Trigger()
	e.ObjectStore.ShutdownEvent().Trigger()
}

func (e *Executor) waitForScheduling() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for e.TransactionManager.InFlight() > 0 {
		<-ticker.C
	}
}

// WithInitialEpoch sets the epoch the Executor starts in.
func WithInitialEpoch(epoch model.Epoch) options.Option[Executor] {
	return func(e *Executor) {
		e.optsInitialEpoch = epoch
	}
}

// WithExecutionWorkerCount sets the number of workers that process the ready certificates.
func WithExecutionWorkerCount(workerCount int) options.Option[Executor] {
	return func(e *Executor) {
		e.optsExecutionWorkerCount = workerCount
	}
}

// WithExecutionHandler sets the function that executes the ready certificates.
func WithExecutionHandler(handler func(*txmanager.PendingCertificate)) options.Option[Executor] {
	return func(e *Executor) {
		e.optsExecutionHandler = handler
	}
}

// WithOverloadConfig sets the thresholds of the admission control.
func WithOverloadConfig(config txmanager.OverloadConfig) options.Option[Executor] {
	return func(e *Executor) {
		e.optsOverloadConfig = config
	}
}

// WithRejectionTrackerOptions sets the options of the rejection tracker.
func WithRejectionTrackerOptions(opts ...options.Option[rejectionsv1.Tracker]) options.Option[Executor] {
	return func(e *Executor) {
		e.optsRejectionTrackerOptions = append(e.optsRejectionTrackerOptions, opts...)
	}
}

// WithRequestHandlerOptions sets the options of the request handler.
func WithRequestHandlerOptions(opts ...options.Option[requesthandler.RequestHandler]) options.Option[Executor] {
	return func(e *Executor) {
		e.optsRequestHandlerOptions = append(e.optsRequestHandlerOptions, opts...)
	}
}
