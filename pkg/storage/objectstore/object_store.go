package objectstore

import (
	"context"

	"github.com/iotaledger/consensus-executor/pkg/core/notifyread"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/module"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

const (
	prefixObjects byte = iota
	prefixLatestVersions
	prefixEffects
	prefixEvents
)

// Store is a kvstore backed object and effects store that allows to wait for the availability of its entries.
type Store struct {
	// objects contains the objects by the bytes of their InputKey.
	objects kvstore.KVStore

	// latestVersions contains the highest known version of every object.
	latestVersions kvstore.KVStore

	// effects contains the executed effects by transaction digest.
	effects kvstore.KVStore

	// events contains the events of executed transactions by transaction digest.
	events kvstore.KVStore

	// inputNotifier wakes the waiters of an InputKey once it becomes available.
	inputNotifier *notifyread.NotifyRead[model.InputKey, struct{}]

	// versionNotifier wakes the waiters of an object once its latest version advances.
	versionNotifier *notifyread.NotifyRead[model.ObjectID, struct{}]

	// effectsNotifier wakes the waiters of a transaction once it was executed.
	effectsNotifier *notifyread.NotifyRead[model.TransactionDigest, *model.TransactionEffects]

	// latestVersionsMutex serializes the updates of latestVersions.
	latestVersionsMutex syncutils.Mutex

	module.Module
}

// New creates a new Store on top of the given KVStore.
func New(subModule module.Module, store kvstore.KVStore, opts ...options.Option[Store]) *Store {
	return options.Apply(&Store{
		Module:          subModule,
		objects:         lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{prefixObjects})),
		latestVersions:  lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{prefixLatestVersions})),
		effects:         lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{prefixEffects})),
		events:          lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{prefixEvents})),
		inputNotifier:   notifyread.New[model.InputKey, struct{}](),
		versionNotifier: notifyread.New[model.ObjectID, struct{}](),
		effectsNotifier: notifyread.New[model.TransactionDigest, *model.TransactionEffects](),
	}, opts, func(s *Store) {
		s.ShutdownEvent().OnTrigger(func() {
			s.StoppedEvent().Trigger()
		})

		s.ConstructedEvent().Trigger()
	})
}

// InsertObject stores the given object and wakes the waiters of its key.
func (s *Store) InsertObject(object *model.Object) error {
	key := object.Key()

	if err := s.storeObject(key, object); err != nil {
		return err
	}

	previousVersion, hasPreviousVersion, err := s.updateLatestVersion(object)
	if err != nil {
		return err
	}

	s.Log("object inserted", log.LevelTrace, "key", key)

	s.inputNotifier.Notify(key, struct{}{})
	if !hasPreviousVersion || object.Version > previousVersion {
		s.versionNotifier.Notify(object.ID, struct{}{})
	}

	return nil
}

// InsertPackage stores the given package and wakes the waiters of its key.
func (s *Store) InsertPackage(id model.ObjectID, contents []byte) error {
	key := model.PackageKey(id)

	if err := s.storeObject(key, &model.Object{ID: id, Contents: contents}); err != nil {
		return err
	}

	s.Log("package inserted", log.LevelTrace, "key", key)

	s.inputNotifier.Notify(key, struct{}{})

	return nil
}

// InsertExecutedEffects stores the effects and events of an executed transaction and wakes its waiters.
func (s *Store) InsertExecutedEffects(effects *model.TransactionEffects, events *model.TransactionEvents) error {
	digestBytes := lo.PanicOnErr(effects.TransactionDigest.Bytes())

	effectsBytes, err := effects.Bytes()
	if err != nil {
		return ierrors.Wrapf(err, "failed to serialize effects of transaction %s", effects.TransactionDigest)
	}

	if err = s.effects.Set(digestBytes, effectsBytes); err != nil {
		return ierrors.Wrapf(err, "failed to store effects of transaction %s", effects.TransactionDigest)
	}

	if events != nil {
		eventsBytes, eventsErr := events.Bytes()
		if eventsErr != nil {
			return ierrors.Wrapf(eventsErr, "failed to serialize events of transaction %s", effects.TransactionDigest)
		}

		if err = s.events.Set(digestBytes, eventsBytes); err != nil {
			return ierrors.Wrapf(err, "failed to store events of transaction %s", effects.TransactionDigest)
		}
	}

	s.Log("effects inserted", log.LevelTrace, "transaction", effects.TransactionDigest)

	s.effectsNotifier.Notify(effects.TransactionDigest, effects)

	return nil
}

// NotifyReadInputObjects blocks until all given keys are available. A receiving key is available once its object
// reached at least the given version, since a later version means that the object was received already.
func (s *Store) NotifyReadInputObjects(ctx context.Context, keys []model.InputKey, receivingKeys map[model.InputKey]struct{}, epoch model.Epoch) error {
	for {
		registrations := make([]*notifyread.Registration[struct{}], 0)
		for _, key := range keys {
			_, isReceiving := receivingKeys[key]

			var registration *notifyread.Registration[struct{}]
			if isReceiving {
				registration = s.versionNotifier.Register(key.ID)
			} else {
				registration = s.inputNotifier.Register(key)
			}

			available, err := s.isAvailable(key, isReceiving)
			if err != nil {
				registration.Cancel()
				lo.ForEach(registrations, (*notifyread.Registration[struct{}]).Cancel)

				return ierrors.Wrapf(err, "failed to check availability of %s in epoch %d", key, epoch)
			}

			if available {
				registration.Cancel()

				continue
			}

			registrations = append(registrations, registration)
		}

		if len(registrations) == 0 {
			return nil
		}

		if _, err := notifyread.WaitAll(ctx, registrations); err != nil {
			return ierrors.Wrapf(err, "stopped waiting for input objects in epoch %d", epoch)
		}
	}
}

// NotifyReadExecutedEffects blocks until all given transactions were executed and returns their effects.
func (s *Store) NotifyReadExecutedEffects(ctx context.Context, digests []model.TransactionDigest) ([]*model.TransactionEffects, error) {
	results := make([]*model.TransactionEffects, len(digests))
	pending := make(map[int]*notifyread.Registration[*model.TransactionEffects])

	for i, digest := range digests {
		registration := s.effectsNotifier.Register(digest)

		effects, exists, err := s.ExecutedEffects(digest)
		if err != nil {
			registration.Cancel()
			for _, pendingRegistration := range pending {
				pendingRegistration.Cancel()
			}

			return nil, err
		}

		if exists {
			registration.Cancel()
			results[i] = effects

			continue
		}

		pending[i] = registration
	}

	for i, registration := range pending {
		effects, err := registration.Wait(ctx)
		if err != nil {
			for _, pendingRegistration := range pending {
				pendingRegistration.Cancel()
			}

			return nil, ierrors.Wrap(err, "stopped waiting for executed effects")
		}

		results[i] = effects
	}

	return results, nil
}

// ObjectByKey returns the object that is stored under the given key.
func (s *Store) ObjectByKey(key model.InputKey) (object *model.Object, exists bool, err error) {
	objectBytes, err := s.objects.Get(lo.PanicOnErr(key.Bytes()))
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, ierrors.Wrapf(err, "failed to load object %s", key)
	}

	if object, _, err = model.ObjectFromBytes(objectBytes); err != nil {
		return nil, false, ierrors.Wrapf(err, "failed to parse object %s", key)
	}

	return object, true, nil
}

// LatestVersion returns the highest known version of the given object.
func (s *Store) LatestVersion(id model.ObjectID) (version model.SequenceNumber, exists bool, err error) {
	versionBytes, err := s.latestVersions.Get(lo.PanicOnErr(id.Bytes()))
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, false, nil
		}

		return 0, false, ierrors.Wrapf(err, "failed to load latest version of object %s", id)
	}

	if version, err = stream.Read[model.SequenceNumber](stream.NewByteReader(versionBytes)); err != nil {
		return 0, false, ierrors.Wrapf(err, "failed to parse latest version of object %s", id)
	}

	return version, true, nil
}

// ExecutedEffects returns the effects of the given transaction if it was executed.
func (s *Store) ExecutedEffects(digest model.TransactionDigest) (effects *model.TransactionEffects, exists bool, err error) {
	effectsBytes, err := s.effects.Get(lo.PanicOnErr(digest.Bytes()))
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, ierrors.Wrapf(err, "failed to load effects of transaction %s", digest)
	}

	if effects, _, err = model.TransactionEffectsFromBytes(effectsBytes); err != nil {
		return nil, false, ierrors.Wrapf(err, "failed to parse effects of transaction %s", digest)
	}

	return effects, true, nil
}

// TransactionEvents returns the events of the given transaction if it was executed and emitted events.
func (s *Store) TransactionEvents(digest model.TransactionDigest) (events *model.TransactionEvents, exists bool, err error) {
	eventsBytes, err := s.events.Get(lo.PanicOnErr(digest.Bytes()))
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, ierrors.Wrapf(err, "failed to load events of transaction %s", digest)
	}

	if events, _, err = model.TransactionEventsFromBytes(eventsBytes); err != nil {
		return nil, false, ierrors.Wrapf(err, "failed to parse events of transaction %s", digest)
	}

	return events, true, nil
}

func (s *Store) storeObject(key model.InputKey, object *model.Object) error {
	objectBytes, err := object.Bytes()
	if err != nil {
		return ierrors.Wrapf(err, "failed to serialize object %s", key)
	}

	if err = s.objects.Set(lo.PanicOnErr(key.Bytes()), objectBytes); err != nil {
		return ierrors.Wrapf(err, "failed to store object %s", key)
	}

	return nil
}

func (s *Store) updateLatestVersion(object *model.Object) (previousVersion model.SequenceNumber, hasPreviousVersion bool, err error) {
	s.latestVersionsMutex.Lock()
	defer s.latestVersionsMutex.Unlock()

	if previousVersion, hasPreviousVersion, err = s.LatestVersion(object.ID); err != nil {
		return 0, false, ierrors.Wrapf(err, "failed to read latest version of object %s", object.ID)
	}

	if hasPreviousVersion && object.Version <= previousVersion {
		return previousVersion, hasPreviousVersion, nil
	}

	if err = s.latestVersions.Set(lo.PanicOnErr(object.ID.Bytes()), lo.PanicOnErr(object.Version.Bytes())); err != nil {
		return 0, false, ierrors.Wrapf(err, "failed to store latest version of object %s", object.ID)
	}

	return previousVersion, hasPreviousVersion, nil
}

func (s *Store) isAvailable(key model.InputKey, isReceiving bool) (bool, error) {
	exists, err := s.objects.Has(lo.PanicOnErr(key.Bytes()))
	if err != nil || exists || !isReceiving {
		return exists, err
	}

	latestVersion, hasLatestVersion, err := s.LatestVersion(key.ID)
	if err != nil {
		return false, err
	}

	return hasLatestVersion && latestVersion >= key.Version, nil
}

var (
	_ txmanager.ObjectCacheReader      = new(Store)
	_ txmanager.TransactionCacheReader = new(Store)
)
