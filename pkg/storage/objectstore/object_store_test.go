package objectstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/runtime/module"
)

func newTestObject(seed string, version model.SequenceNumber) *model.Object {
	return &model.Object{
		ID:       model.ObjectIDFromData([]byte(seed)),
		Version:  version,
		Contents: []byte(seed),
	}
}

func TestStore_NotifyReadInputObjects(t *testing.T) {
	store := New(module.NewTestModule(t), mapdb.NewMapDB())

	available := newTestObject("available", 1)
	missing := newTestObject("missing", 2)
	packageID := model.ObjectIDFromData([]byte("package"))

	require.NoError(t, store.InsertObject(available))

	keys := []model.InputKey{available.Key(), missing.Key(), model.PackageKey(packageID)}

	result := make(chan error, 1)
	go func() {
		result <- store.NotifyReadInputObjects(context.Background(), keys, nil, 0)
	}()

	require.NoError(t, store.InsertObject(missing))

	select {
	case <-result:
		require.FailNow(t, "package is still missing")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, store.InsertPackage(packageID, []byte("code")))

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "waiter was not woken")
	}

	object, exists, err := store.ObjectByKey(missing.Key())
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, missing, object)

	require.Eventually(t, func() bool {
		return store.inputNotifier.Pending() == 0
	}, time.Second, time.Millisecond)
}

func TestStore_NotifyReadInputObjectsCancelled(t *testing.T) {
	store := New(module.NewTestModule(t), mapdb.NewMapDB())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.NotifyReadInputObjects(ctx, []model.InputKey{newTestObject("missing", 1).Key()}, nil, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, store.inputNotifier.Pending())
}

func TestStore_ReceivingObjects(t *testing.T) {
	store := New(module.NewTestModule(t), mapdb.NewMapDB())

	received := newTestObject("received", 5)
	receivingKey := model.VersionedObjectKey(received.ID, 3)
	receivingKeys := map[model.InputKey]struct{}{receivingKey: {}}

	require.NoError(t, store.InsertObject(newTestObject("received", 2)))

	result := make(chan error, 1)
	go func() {
		result <- store.NotifyReadInputObjects(context.Background(), []model.InputKey{receivingKey}, receivingKeys, 0)
	}()

	require.NoError(t, store.InsertObject(received))

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "receiving key was not considered available")
	}

	latestVersion, exists, err := store.LatestVersion(received.ID)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, model.SequenceNumber(5), latestVersion)
}

func TestStore_ExecutedEffects(t *testing.T) {
	store := New(module.NewTestModule(t), mapdb.NewMapDB())

	effects := &model.TransactionEffects{
		TransactionDigest: model.NewDigest([]byte("tx")),
		ExecutedEpoch:     1,
	}
	events := &model.TransactionEvents{Events: [][]byte{[]byte("event")}}

	result := make(chan []*model.TransactionEffects, 1)
	go func() {
		executedEffects, err := store.NotifyReadExecutedEffects(context.Background(), []model.TransactionDigest{effects.TransactionDigest})
		require.NoError(t, err)

		result <- executedEffects
	}()

	require.Eventually(t, func() bool {
		return store.effectsNotifier.Pending() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, store.InsertExecutedEffects(effects, events))

	select {
	case executedEffects := <-result:
		require.Len(t, executedEffects, 1)
		require.Equal(t, effects.Digest(), executedEffects[0].Digest())
	case <-time.After(5 * time.Second):
		require.FailNow(t, "waiter was not woken")
	}

	storedEvents, exists, err := store.TransactionEvents(effects.TransactionDigest)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, events, storedEvents)

	executedEffects, err := store.NotifyReadExecutedEffects(context.Background(), []model.TransactionDigest{effects.TransactionDigest})
	require.NoError(t, err)
	require.Equal(t, effects.Digest(), executedEffects[0].Digest())

	_, exists, err = store.ExecutedEffects(model.NewDigest([]byte("unknown")))
	require.NoError(t, err)
	require.False(t, exists)
}
