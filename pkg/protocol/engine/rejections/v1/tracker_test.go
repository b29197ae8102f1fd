package rejectionsv1

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/module"
)

func testPosition(round model.Round, index uint32) model.TransactionPosition {
	return model.NewTransactionPosition(model.NewBlockRef(round, 0, model.EmptyDigest), index)
}

func requireReason(t *testing.T, expected rejections.Reason, err error) {
	require.ErrorIs(t, err, rejections.ErrRejectedByConsensus)

	reason, ok := rejections.ReasonFromError(err)
	require.True(t, ok)
	require.Equal(t, expected, reason)
}

func TestTracker_RejectTransaction(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	position := testPosition(1, 0)
	tracker.RejectTransaction(position)
	require.True(t, tracker.IsRejected(position))

	requireReason(t, rejections.ReasonRejected, tracker.WaitForRejection(context.Background(), position, 0))
	requireReason(t, rejections.ReasonRejected, tracker.WaitForRejection(context.Background(), position, time.Second))
}

func TestTracker_RejectIdempotent(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	position := testPosition(5, 1)
	tracker.RejectTransaction(position)
	positions, rounds := tracker.Size()

	tracker.RejectTransaction(position)
	positionsAfter, roundsAfter := tracker.Size()

	require.Equal(t, positions, positionsAfter)
	require.Equal(t, rounds, roundsAfter)
	require.Equal(t, 1, positionsAfter)
	require.Equal(t, 1, roundsAfter)
}

func TestTracker_WaitForRejectionNotified(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	position := testPosition(3, 2)
	waitResult := make(chan error, 1)
	go func() {
		waitResult <- tracker.WaitForRejection(context.Background(), position, 10*time.Second)
	}()

	require.Eventually(t, func() bool {
		return tracker.rejectionNotifier.Pending() == 1
	}, time.Second, time.Millisecond)

	tracker.RejectTransaction(position)

	select {
	case err := <-waitResult:
		requireReason(t, rejections.ReasonRejected, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "waiter was not woken")
	}

	require.Equal(t, 0, tracker.rejectionNotifier.Pending())
}

func TestTracker_WaitForRejectionTimeout(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	start := time.Now()
	requireReason(t, rejections.ReasonTimedOut, tracker.WaitForRejection(context.Background(), testPosition(1, 0), 10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	require.Equal(t, 0, tracker.rejectionNotifier.Pending())
}

func TestTracker_WaitForRejectionExpired(t *testing.T) {
	tracker := New(module.NewTestModule(t), WithExpirationPollInterval(5*time.Millisecond))

	position := testPosition(1, 0)
	waitResult := make(chan error, 1)
	go func() {
		waitResult <- tracker.WaitForRejection(context.Background(), position, 10*time.Second)
	}()

	tracker.UpdateLastCommittedRound(DefaultExpirationWindow + 2)

	select {
	case err := <-waitResult:
		requireReason(t, rejections.ReasonExpired, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "waiter did not observe the expiration")
	}

	requireReason(t, rejections.ReasonExpired, tracker.WaitForRejection(context.Background(), position, time.Second))
}

func TestTracker_WaitForRejectionContextCancelled(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.WaitForRejection(ctx, testPosition(1, 0), 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ierrors.Is(err, rejections.ErrRejectedByConsensus))
}

func TestTracker_UpdateLastCommittedRound(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	expiredEvents := 0
	tracker.Events.RoundsExpired.Hook(func(_ model.Round, positions int) {
		expiredEvents += positions
	})

	for round := model.Round(1); round <= 5; round++ {
		tracker.RejectTransaction(testPosition(round, 0))
		tracker.RejectTransaction(testPosition(round, 1))
	}

	tracker.UpdateLastCommittedRound(DefaultExpirationWindow + 3)

	for round := model.Round(1); round <= 2; round++ {
		require.False(t, tracker.IsRejected(testPosition(round, 0)))
		require.False(t, tracker.IsRejected(testPosition(round, 1)))
	}
	for round := model.Round(3); round <= 5; round++ {
		require.True(t, tracker.IsRejected(testPosition(round, 0)))
		require.True(t, tracker.IsRejected(testPosition(round, 1)))
	}

	positions, rounds := tracker.Size()
	require.Equal(t, 6, positions)
	require.Equal(t, 3, rounds)
	require.Equal(t, 4, expiredEvents)

	lastCommittedRound, isSet := tracker.LastCommittedRound()
	require.True(t, isSet)
	require.Equal(t, DefaultExpirationWindow+3, lastCommittedRound)

	requireReason(t, rejections.ReasonExpired, tracker.WaitForRejection(context.Background(), testPosition(1, 0), time.Second))
	requireReason(t, rejections.ReasonRejected, tracker.WaitForRejection(context.Background(), testPosition(3, 0), time.Second))
}

func TestTracker_StaleRejectIsNoop(t *testing.T) {
	tracker := New(module.NewTestModule(t), WithExpirationWindow(10))

	tracker.UpdateLastCommittedRound(20)
	tracker.RejectTransaction(testPosition(9, 0))

	positions, rounds := tracker.Size()
	require.Zero(t, positions)
	require.Zero(t, rounds)
	require.False(t, tracker.IsRejected(testPosition(9, 0)))

	tracker.RejectTransaction(testPosition(10, 0))
	require.True(t, tracker.IsRejected(testPosition(10, 0)))
}

func TestTracker_RoundRegressionIgnored(t *testing.T) {
	tracker := New(module.NewTestModule(t), WithExpirationWindow(10))

	tracker.RejectTransaction(testPosition(5, 0))
	tracker.UpdateLastCommittedRound(15)
	tracker.UpdateLastCommittedRound(3)

	lastCommittedRound, isSet := tracker.LastCommittedRound()
	require.True(t, isSet)
	require.Equal(t, model.Round(15), lastCommittedRound)
	require.True(t, tracker.IsRejected(testPosition(5, 0)))

	tracker.UpdateLastCommittedRound(16)
	require.False(t, tracker.IsRejected(testPosition(5, 0)))
}

func TestTracker_RoundsNearWindowBounds(t *testing.T) {
	tracker := New(module.NewTestModule(t))

	tracker.RejectTransaction(testPosition(0, 0))
	tracker.UpdateLastCommittedRound(DefaultExpirationWindow)
	require.True(t, tracker.IsRejected(testPosition(0, 0)))

	tracker.UpdateLastCommittedRound(1000)
	require.False(t, tracker.IsRejected(testPosition(0, 0)))

	farFuture := testPosition(math.MaxUint64-5, 0)
	tracker.RejectTransaction(farFuture)
	require.True(t, tracker.IsRejected(farFuture))
	requireReason(t, rejections.ReasonRejected, tracker.WaitForRejection(context.Background(), farFuture, time.Second))

	tracker.UpdateLastCommittedRound(math.MaxUint64)
	require.True(t, tracker.IsRejected(farFuture))
}
