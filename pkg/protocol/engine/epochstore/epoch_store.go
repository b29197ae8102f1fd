package epochstore

import (
	"context"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrSharedVersionNotAssigned is returned if consensus did not assign a version to a shared input.
	ErrSharedVersionNotAssigned = ierrors.New("shared object version not assigned")

	// ErrUnknownInputKind is returned for inputs of an unknown kind.
	ErrUnknownInputKind = ierrors.New("unknown input kind")
)

// Store holds the state of a single epoch that is needed to resolve the inputs of transactions.
type Store struct {
	// epoch is the epoch of the store.
	epoch model.Epoch

	// ctx is cancelled when the epoch ends.
	ctx context.Context

	// cancel ends the epoch.
	cancel context.CancelFunc

	// sharedObjectVersions contains the versions that consensus assigned to the shared inputs of each transaction.
	sharedObjectVersions *shrinkingmap.ShrinkingMap[model.TransactionKey, map[model.ObjectID]model.SequenceNumber]
}

// New creates a new Store for the given epoch whose lifetime is bound to the given parent context.
func New(parentCtx context.Context, epoch model.Epoch) *Store {
	ctx, cancel := context.WithCancel(parentCtx)

	return &Store{
		epoch:                epoch,
		ctx:                  ctx,
		cancel:               cancel,
		sharedObjectVersions: shrinkingmap.New[model.TransactionKey, map[model.ObjectID]model.SequenceNumber](),
	}
}

// Epoch returns the epoch of the store.
func (s *Store) Epoch() model.Epoch {
	return s.epoch
}

// Context returns a context that is cancelled when the epoch ends.
func (s *Store) Context() context.Context {
	return s.ctx
}

// End ends the epoch, which cancels everything that is bound to its context.
func (s *Store) End() {
	s.cancel()
}

// IsAlive returns true if the epoch did not end yet.
func (s *Store) IsAlive() bool {
	return s.ctx.Err() == nil
}

// AssignSharedObjectVersions stores the versions that consensus assigned to the shared inputs of a transaction.
func (s *Store) AssignSharedObjectVersions(transactionKey model.TransactionKey, versions map[model.ObjectID]model.SequenceNumber) {
	assignedVersions := make(map[model.ObjectID]model.SequenceNumber, len(versions))
	for id, version := range versions {
		assignedVersions[id] = version
	}

	s.sharedObjectVersions.Set(transactionKey, assignedVersions)
}

// RemoveSharedObjectVersions prunes the assigned versions of an executed transaction.
func (s *Store) RemoveSharedObjectVersions(transactionKey model.TransactionKey) {
	s.sharedObjectVersions.Delete(transactionKey)
}

// InputObjectKeys resolves the declared inputs of a transaction to the keys of the concrete objects.
func (s *Store) InputObjectKeys(transactionKey model.TransactionKey, inputs []model.InputObjectKind) ([]model.InputKey, error) {
	inputKeys := make([]model.InputKey, 0, len(inputs))

	var assignedVersions map[model.ObjectID]model.SequenceNumber
	for _, input := range inputs {
		switch input.Type {
		case model.InputObjectKindOwned:
			inputKeys = append(inputKeys, model.VersionedObjectKey(input.Ref.ID, input.Ref.Version))

		case model.InputObjectKindPackage:
			inputKeys = append(inputKeys, model.PackageKey(input.Ref.ID))

		case model.InputObjectKindShared:
			if assignedVersions == nil {
				var exists bool
				if assignedVersions, exists = s.sharedObjectVersions.Get(transactionKey); !exists {
					return nil, ierrors.Wrapf(ErrSharedVersionNotAssigned, "transaction %s", transactionKey)
				}
			}

			version, exists := assignedVersions[input.Ref.ID]
			if !exists {
				return nil, ierrors.Wrapf(ErrSharedVersionNotAssigned, "object %s in transaction %s", input.Ref.ID, transactionKey)
			}

			inputKeys = append(inputKeys, model.VersionedObjectKey(input.Ref.ID, version))

		default:
			return nil, ierrors.Wrapf(ErrUnknownInputKind, "input kind %d", input.Type)
		}
	}

	return inputKeys, nil
}

var _ txmanager.EpochStore = new(Store)
