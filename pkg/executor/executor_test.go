package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/runtime/module"
)

func newCertificate(epoch model.Epoch, inputs ...*model.Object) *model.Certificate {
	transactionData := &model.TransactionData{Payload: []byte{byte(epoch)}}
	for _, input := range inputs {
		transactionData.Inputs = append(transactionData.Inputs, model.OwnedInput(input.Ref()))
	}

	return model.NewCertificate(transactionData, epoch)
}

func TestExecutor(t *testing.T) {
	executed := make(chan *txmanager.PendingCertificate, 10)

	executor := New(module.NewTestModule(t), mapdb.NewMapDB(),
		WithInitialEpoch(3),
		WithExecutionWorkerCount(2),
		WithExecutionHandler(func(pendingCertificate *txmanager.PendingCertificate) {
			executed <- pendingCertificate
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- executor.Run(ctx)
	}()

	available := &model.Object{ID: model.ObjectIDFromData([]byte("available")), Version: 1}
	require.NoError(t, executor.ObjectStore.InsertObject(available))

	readyCertificate := newCertificate(3, available)
	require.NoError(t, executor.Submit(readyCertificate))

	select {
	case pendingCertificate := <-executed:
		require.Equal(t, readyCertificate.Digest(), pendingCertificate.Certificate.Digest())
	case <-time.After(5 * time.Second):
		require.FailNow(t, "certificate was not executed")
	}

	missing := &model.Object{ID: model.ObjectIDFromData([]byte("missing")), Version: 1}
	require.NoError(t, executor.Submit(newCertificate(3, missing)))
	require.Eventually(t, func() bool {
		return executor.TransactionManager.InFlight() == 1
	}, 5*time.Second, time.Millisecond)

	nextEpochStore, err := executor.Reconfigure()
	require.NoError(t, err)
	require.Equal(t, model.Epoch(4), nextEpochStore.Epoch())
	require.Equal(t, nextEpochStore, executor.CurrentEpochStore())

	require.Eventually(t, func() bool {
		return executor.Metrics.SkippedCertificatesByReason(txmanager.SkipReasonEpochEnded) == 1
	}, 5*time.Second, time.Millisecond)

	// certificates of the ended epoch no longer match the current one
	require.NoError(t, executor.Submit(newCertificate(3, available)))
	require.Eventually(t, func() bool {
		return executor.Metrics.SkippedCertificatesByReason(txmanager.SkipReasonWrongEpoch) == 1
	}, 5*time.Second, time.Millisecond)

	require.Equal(t, uint64(1), executor.Metrics.ReadyCertificates.Load())
	require.Equal(t, uint64(1), executor.Metrics.DispatchedCertificates.Load())

	cancel()

	select {
	case err = <-runErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "executor did not stop")
	}

	require.ErrorIs(t, executor.Submit(readyCertificate), ErrShutdown)
	_, err = executor.Reconfigure()
	require.ErrorIs(t, err, ErrShutdown)
	require.False(t, executor.CurrentEpochStore().IsAlive())
}

func TestExecutor_Rejections(t *testing.T) {
	executor := New(module.NewTestModule(t), mapdb.NewMapDB())
	defer executor.Shutdown()

	position := model.NewTransactionPosition(model.NewBlockRef(10, 0, model.NewDigest([]byte("block"))), 0)
	executor.RequestHandler.RejectTransaction(position)

	err := executor.RejectionTracker.WaitForRejection(context.Background(), position, time.Second)
	reason, isRejection := rejections.ReasonFromError(err)
	require.True(t, isRejection)
	require.Equal(t, rejections.ReasonRejected, reason)

	require.Equal(t, uint64(1), executor.Metrics.RejectedTransactions.Load())
	require.Equal(t, uint64(1), executor.Metrics.ResolvedWaitsByReason(rejections.ReasonRejected))
}
