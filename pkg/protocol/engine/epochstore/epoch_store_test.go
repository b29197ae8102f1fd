package epochstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
)

func TestStore_InputObjectKeys(t *testing.T) {
	store := New(context.Background(), 3)
	require.Equal(t, model.Epoch(3), store.Epoch())

	owned := model.ObjectRef{ID: model.ObjectIDFromData([]byte("owned")), Version: 4}
	sharedID := model.ObjectIDFromData([]byte("shared"))
	packageID := model.ObjectIDFromData([]byte("package"))
	transactionKey := model.NewDigest([]byte("tx"))

	inputs := []model.InputObjectKind{
		model.OwnedInput(owned),
		model.SharedInput(sharedID, 1, true),
		model.PackageInput(packageID),
	}

	_, err := store.InputObjectKeys(transactionKey, inputs)
	require.ErrorIs(t, err, ErrSharedVersionNotAssigned)

	store.AssignSharedObjectVersions(transactionKey, map[model.ObjectID]model.SequenceNumber{sharedID: 9})

	inputKeys, err := store.InputObjectKeys(transactionKey, inputs)
	require.NoError(t, err)
	require.Equal(t, []model.InputKey{
		model.VersionedObjectKey(owned.ID, 4),
		model.VersionedObjectKey(sharedID, 9),
		model.PackageKey(packageID),
	}, inputKeys)

	store.RemoveSharedObjectVersions(transactionKey)

	_, err = store.InputObjectKeys(transactionKey, inputs)
	require.ErrorIs(t, err, ErrSharedVersionNotAssigned)

	inputKeys, err = store.InputObjectKeys(transactionKey, inputs[:1])
	require.NoError(t, err)
	require.Len(t, inputKeys, 1)
}

func TestStore_End(t *testing.T) {
	parentCtx, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	store := New(parentCtx, 1)
	require.True(t, store.IsAlive())

	store.End()
	require.False(t, store.IsAlive())
	require.ErrorIs(t, store.Context().Err(), context.Canceled)

	cancelParent()
	require.False(t, New(parentCtx, 2).IsAlive())
}
