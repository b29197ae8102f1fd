package txmanagerv1

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/module"
	"github.com/iotaledger/hive.go/runtime/options"
)

// TransactionManager schedules every enqueued certificate in its own goroutine that races the availability of its
// inputs against the availability of its effects.
type TransactionManager struct {
	// Events contains the Events of the TransactionManager.
	Events *txmanager.Events

	// objectCacheReader is used to wait for the inputs of a transaction.
	objectCacheReader txmanager.ObjectCacheReader

	// transactionCacheReader is used to wait for the effects of a transaction.
	transactionCacheReader txmanager.TransactionCacheReader

	// readyCertificates is the hand-off to the execution.
	readyCertificates *txmanager.ReadyQueue

	// inFlight is the number of scheduling goroutines that are still waiting.
	inFlight atomic.Int64

	module.Module
}

// New creates a new TransactionManager.
func New(
	subModule module.Module,
	objectCacheReader txmanager.ObjectCacheReader,
	transactionCacheReader txmanager.TransactionCacheReader,
	readyCertificates *txmanager.ReadyQueue,
	opts ...options.Option[TransactionManager],
) *TransactionManager {
	return options.Apply(&TransactionManager{
		Events:                 txmanager.NewEvents(),
		Module:                 subModule,
		objectCacheReader:      objectCacheReader,
		transactionCacheReader: transactionCacheReader,
		readyCertificates:      readyCertificates,
	}, opts, func(t *TransactionManager) {
		t.initLogging()

		t.ShutdownEvent().OnTrigger(func() {
			t.StoppedEvent().Trigger()
		})

		t.ConstructedEvent().Trigger()
	})
}

// EnqueueCertificates schedules the executable form of the given certificates.
func (t *TransactionManager) EnqueueCertificates(certificates []*model.VerifiedCertificate, epochStore txmanager.EpochStore) {
	executableCertificates := make([]*model.Certificate, 0, len(certificates))
	for _, certificate := range certificates {
		executableCertificates = append(executableCertificates, certificate.Executable())
	}

	t.Enqueue(executableCertificates, epochStore)
}

// Enqueue schedules the given certificates.
func (t *TransactionManager) Enqueue(certificates []*model.Certificate, epochStore txmanager.EpochStore) {
	for _, certificate := range certificates {
		t.enqueue(certificate, nil, epochStore)
	}
}

// EnqueueWithExpectedEffectsDigest schedules the given certificates together with their expected effects digest.
func (t *TransactionManager) EnqueueWithExpectedEffectsDigest(certificates []*txmanager.CertificateWithEffectsDigest, epochStore txmanager.EpochStore) {
	for _, certificate := range certificates {
		expectedEffectsDigest := certificate.ExpectedEffectsDigest
		t.enqueue(certificate.Certificate, &expectedEffectsDigest, epochStore)
	}
}

// CheckExecutionOverload always admits the transaction.
func (t *TransactionManager) CheckExecutionOverload(_ txmanager.OverloadConfig, _ *model.TransactionData) error {
	return nil
}

// InFlight returns the number of transactions that are currently waiting to become ready.
func (t *TransactionManager) InFlight() int64 {
	return t.inFlight.Load()
}

// enqueue spawns the scheduling goroutine of a certificate unless it belongs to another epoch.
func (t *TransactionManager) enqueue(certificate *model.Certificate, expectedEffectsDigest *model.EffectsDigest, epochStore txmanager.EpochStore) {
	if certificate.Epoch() != epochStore.Epoch() {
		t.LogDebug("dropping certificate of other epoch", "digest", certificate.Digest(), "certificateEpoch", certificate.Epoch(), "epoch", epochStore.Epoch())
		t.Events.CertificateSkipped.Trigger(certificate, txmanager.SkipReasonWrongEpoch)

		return
	}

	t.inFlight.Inc()

	go func() {
		defer t.inFlight.Dec()

		t.scheduleTransaction(epochStore.Context(), certificate, expectedEffectsDigest, epochStore)
	}()
}

// scheduleTransaction waits until either the inputs of the transaction are available or the transaction was executed
// already. Only the former hands the certificate off to execution.
func (t *TransactionManager) scheduleTransaction(ctx context.Context, certificate *model.Certificate, expectedEffectsDigest *model.EffectsDigest, epochStore txmanager.EpochStore) {
	enqueueTime := time.Now()
	transactionData := certificate.TransactionData()

	inputKeys, err := epochStore.InputObjectKeys(certificate.Key(), transactionData.InputObjects())
	if err != nil {
		// the inputs of executed transactions are pruned
		t.Events.CertificateSkipped.Trigger(certificate, txmanager.SkipReasonUnresolvedInputs)

		return
	}

	receivingKeys := make(map[model.InputKey]struct{})
	for _, receivingObject := range transactionData.ReceivingObjects() {
		receivingKeys[model.VersionedObjectKey(receivingObject.ID, receivingObject.Version)] = struct{}{}
	}

	dependencies := make([]model.InputKey, 0, len(inputKeys)+len(receivingKeys))
	dependencies = append(dependencies, inputKeys...)
	for receivingKey := range receivingKeys {
		dependencies = append(dependencies, receivingKey)
	}

	raceCtx, cancelRace := context.WithCancel(ctx)
	defer cancelRace()

	inputsAvailable := make(chan error, 1)
	go func() {
		inputsAvailable <- t.objectCacheReader.NotifyReadInputObjects(raceCtx, dependencies, receivingKeys, epochStore.Epoch())
	}()

	alreadyExecuted := make(chan error, 1)
	go func() {
		_, readErr := t.transactionCacheReader.NotifyReadExecutedEffects(raceCtx, []model.TransactionDigest{certificate.Digest()})
		alreadyExecuted <- readErr
	}()

	select {
	case err = <-inputsAvailable:
		if err != nil || ctx.Err() != nil {
			t.Events.CertificateSkipped.Trigger(certificate, txmanager.SkipReasonEpochEnded)

			return
		}

		pendingCertificate := &txmanager.PendingCertificate{
			Certificate:           certificate,
			ExpectedEffectsDigest: expectedEffectsDigest,
			WaitingInputObjects:   make(map[model.InputKey]struct{}),
			Stats: txmanager.PendingCertificateStats{
				EnqueueTime: enqueueTime,
				ReadyTime:   time.Now(),
			},
		}

		t.readyCertificates.Push(pendingCertificate)
		t.Events.CertificateReady.Trigger(pendingCertificate)

	case err = <-alreadyExecuted:
		if err != nil {
			t.Events.CertificateSkipped.Trigger(certificate, txmanager.SkipReasonEpochEnded)

			return
		}

		t.Events.CertificateSkipped.Trigger(certificate, txmanager.SkipReasonAlreadyExecuted)
	}
}

func (t *TransactionManager) initLogging() {
	logLevel := log.LevelTrace

	t.Events.CertificateReady.Hook(func(pendingCertificate *txmanager.PendingCertificate) {
		t.Log("certificate ready", logLevel, "digest", pendingCertificate.Certificate.Digest(), "latency", pendingCertificate.Stats.ReadyLatency())
	})

	t.Events.CertificateSkipped.Hook(func(certificate *model.Certificate, reason txmanager.SkipReason) {
		t.Log("certificate skipped", logLevel, "digest", certificate.Digest(), "reason", reason)
	})
}

var _ txmanager.TransactionManager = new(TransactionManager)
