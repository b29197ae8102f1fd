package txmanagerv1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/epochstore"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	txmanagertests "github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager/tests"
	"github.com/iotaledger/consensus-executor/pkg/storage/objectstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/runtime/module"
)

func newTestFramework(t *testing.T) *txmanagertests.TestFramework {
	objectStore := objectstore.New(module.NewTestModule(t), mapdb.NewMapDB())
	epochStore := epochstore.New(context.Background(), 5)
	readyQueue := txmanager.NewReadyQueue()

	t.Cleanup(func() {
		epochStore.End()
		readyQueue.Close()
	})

	return txmanagertests.NewTestFramework(t, New(module.NewTestModule(t), objectStore, objectStore, readyQueue), objectStore, epochStore, readyQueue)
}

func TestTransactionManagerV1_Interface(t *testing.T) {
	txmanagertests.TestAll(t, newTestFramework)
}

func TestTransactionManagerV1_Events(t *testing.T) {
	objectStore := objectstore.New(module.NewTestModule(t), mapdb.NewMapDB())
	epochStore := epochstore.New(context.Background(), 1)
	readyQueue := txmanager.NewReadyQueue()
	defer readyQueue.Close()
	defer epochStore.End()

	transactionManager := New(module.NewTestModule(t), objectStore, objectStore, readyQueue)

	skipped := make(chan txmanager.SkipReason, 10)
	transactionManager.Events.CertificateSkipped.Hook(func(_ *model.Certificate, reason txmanager.SkipReason) {
		skipped <- reason
	})

	ready := make(chan *txmanager.PendingCertificate, 10)
	transactionManager.Events.CertificateReady.Hook(func(pendingCertificate *txmanager.PendingCertificate) {
		ready <- pendingCertificate
	})

	object := &model.Object{ID: model.ObjectIDFromData([]byte("coin")), Version: 1}
	certificate := model.NewCertificate(&model.TransactionData{Inputs: []model.InputObjectKind{model.OwnedInput(object.Ref())}}, 1)

	transactionManager.Enqueue([]*model.Certificate{model.NewCertificate(certificate.TransactionData(), 2)}, epochStore)
	require.Equal(t, txmanager.SkipReasonWrongEpoch, <-skipped)

	transactionManager.Enqueue([]*model.Certificate{model.NewCertificate(&model.TransactionData{
		Inputs: []model.InputObjectKind{model.SharedInput(object.ID, 1, false)},
	}, 1)}, epochStore)
	require.Equal(t, txmanager.SkipReasonUnresolvedInputs, <-skipped)

	require.NoError(t, objectStore.InsertObject(object))
	transactionManager.Enqueue([]*model.Certificate{certificate}, epochStore)

	select {
	case pendingCertificate := <-ready:
		require.Equal(t, certificate.Digest(), pendingCertificate.Certificate.Digest())
	case <-time.After(5 * time.Second):
		require.FailNow(t, "certificate did not become ready")
	}

	require.Equal(t, certificate.Digest(), (<-readyQueue.Out()).Certificate.Digest())

	require.NoError(t, objectStore.InsertExecutedEffects(&model.TransactionEffects{TransactionDigest: certificate.Digest()}, nil))
	transactionManager.Enqueue([]*model.Certificate{certificate}, epochStore)

	select {
	case reason := <-skipped:
		require.Equal(t, txmanager.SkipReasonAlreadyExecuted, reason)
	case pendingCertificate := <-ready:
		// both outcomes are available, so the race may be won by either of them
		require.Equal(t, certificate.Digest(), pendingCertificate.Certificate.Digest())
		<-readyQueue.Out()
	case <-time.After(5 * time.Second):
		require.FailNow(t, "certificate was neither skipped nor ready")
	}

	require.NoError(t, transactionManager.CheckExecutionOverload(txmanager.OverloadConfig{}, certificate.TransactionData()))
}

func TestTransactionManagerV1_EpochEndLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// the root loggers of the test modules run their own worker pools
	objectStoreModule := module.NewTestModule(t)
	defer objectStoreModule.Shutdown()

	transactionManagerModule := module.NewTestModule(t)
	defer transactionManagerModule.Shutdown()

	objectStore := objectstore.New(objectStoreModule, mapdb.NewMapDB())
	epochStore := epochstore.New(context.Background(), 1)
	readyQueue := txmanager.NewReadyQueue()

	transactionManager := New(transactionManagerModule, objectStore, objectStore, readyQueue)

	certificates := make([]*model.Certificate, 0)
	for i := 0; i < 100; i++ {
		object := &model.Object{ID: model.ObjectIDFromData([]byte{byte(i)}), Version: 1}
		certificates = append(certificates, model.NewCertificate(&model.TransactionData{
			Inputs: []model.InputObjectKind{model.OwnedInput(object.Ref())},
		}, 1))
	}

	transactionManager.Enqueue(certificates, epochStore)
	require.Equal(t, int64(100), transactionManager.InFlight())

	epochStore.End()

	require.Eventually(t, func() bool {
		return transactionManager.InFlight() == 0
	}, 5*time.Second, time.Millisecond)

	readyQueue.Close()
	_, open := <-readyQueue.Out()
	require.False(t, open)
}

func TestReadyQueue_PushAfterClose(t *testing.T) {
	readyQueue := txmanager.NewReadyQueue()
	readyQueue.Close()

	require.Panics(t, func() {
		readyQueue.Push(&txmanager.PendingCertificate{Certificate: model.NewCertificate(&model.TransactionData{}, 0)})
	})
}
