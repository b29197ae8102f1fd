package txmanagertests

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/epochstore"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/consensus-executor/pkg/storage/objectstore"
	"github.com/iotaledger/hive.go/lo"
)

// waitTimeout bounds the time the TestFramework waits for asynchronous outcomes.
const waitTimeout = 5 * time.Second

type TestFramework struct {
	Instance    txmanager.TransactionManager
	ObjectStore *objectstore.Store
	EpochStore  *epochstore.Store
	ReadyQueue  *txmanager.ReadyQueue

	objectsByAlias      map[string]*model.Object
	certificatesByAlias map[string]*model.Certificate
	test                *testing.T
	mutex               sync.RWMutex
}

func NewTestFramework(test *testing.T, instance txmanager.TransactionManager, objectStore *objectstore.Store, epochStore *epochstore.Store, readyQueue *txmanager.ReadyQueue) *TestFramework {
	return &TestFramework{
		Instance:            instance,
		ObjectStore:         objectStore,
		EpochStore:          epochStore,
		ReadyQueue:          readyQueue,
		objectsByAlias:      make(map[string]*model.Object),
		certificatesByAlias: make(map[string]*model.Certificate),
		test:                test,
	}
}

// CreateObject creates a new object with the given alias without inserting it into the ObjectStore.
func (t *TestFramework) CreateObject(alias string, version model.SequenceNumber) *model.Object {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	object := &model.Object{
		ID:       model.ObjectIDFromData([]byte(alias)),
		Version:  version,
		Contents: []byte(alias),
	}
	t.objectsByAlias[alias] = object

	return object
}

// InsertObjects makes the objects with the given aliases available.
func (t *TestFramework) InsertObjects(aliases ...string) {
	for _, alias := range aliases {
		require.NoError(t.test, t.ObjectStore.InsertObject(t.Object(alias)), "failed to insert object with alias '%s'", alias)
	}
}

// InsertObjectVersion makes the given version of the object with the given alias available.
func (t *TestFramework) InsertObjectVersion(alias string, version model.SequenceNumber) {
	object := *t.Object(alias)
	object.Version = version

	require.NoError(t.test, t.ObjectStore.InsertObject(&object), "failed to insert version %d of object with alias '%s'", version, alias)
}

func (t *TestFramework) Object(alias string) *model.Object {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	object, exists := t.objectsByAlias[alias]
	require.True(t.test, exists, "object with alias '%s' does not exist", alias)

	return object
}

// CreateCertificate creates a certificate in the given epoch that consumes the owned objects with the given aliases.
func (t *TestFramework) CreateCertificate(alias string, epoch model.Epoch, ownedInputs []string, opts ...func(*model.TransactionData)) *model.Certificate {
	transactionData := &model.TransactionData{
		Sender:  model.ObjectIDFromData([]byte("sender")),
		Inputs:  lo.Map(ownedInputs, func(inputAlias string) model.InputObjectKind { return model.OwnedInput(t.Object(inputAlias).Ref()) }),
		Payload: []byte(alias),
	}

	for _, opt := range opts {
		opt(transactionData)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	certificate := model.NewCertificate(transactionData, epoch)
	t.certificatesByAlias[alias] = certificate

	return certificate
}

// WithSharedInput adds the object with the given alias as shared input.
func (t *TestFramework) WithSharedInput(alias string) func(*model.TransactionData) {
	return func(transactionData *model.TransactionData) {
		transactionData.Inputs = append(transactionData.Inputs, model.SharedInput(t.Object(alias).ID, 1, true))
	}
}

// WithReceivingObject adds the object with the given alias as receiving object.
func (t *TestFramework) WithReceivingObject(alias string) func(*model.TransactionData) {
	return func(transactionData *model.TransactionData) {
		transactionData.Receiving = append(transactionData.Receiving, t.Object(alias).Ref())
	}
}

func (t *TestFramework) Certificate(alias string) *model.Certificate {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	certificate, exists := t.certificatesByAlias[alias]
	require.True(t.test, exists, "certificate with alias '%s' does not exist", alias)

	return certificate
}

// AssignSharedVersion assigns the given version of the shared object to the certificate.
func (t *TestFramework) AssignSharedVersion(certificateAlias string, objectAlias string, version model.SequenceNumber) {
	t.EpochStore.AssignSharedObjectVersions(t.Certificate(certificateAlias).Key(), map[model.ObjectID]model.SequenceNumber{
		t.Object(objectAlias).ID: version,
	})
}

func (t *TestFramework) Enqueue(aliases ...string) {
	t.Instance.Enqueue(lo.Map(aliases, t.Certificate), t.EpochStore)
}

func (t *TestFramework) EnqueueWithExpectedEffectsDigest(alias string, expectedEffectsDigest model.EffectsDigest) {
	t.Instance.EnqueueWithExpectedEffectsDigest([]*txmanager.CertificateWithEffectsDigest{{
		Certificate:           t.Certificate(alias),
		ExpectedEffectsDigest: expectedEffectsDigest,
	}}, t.EpochStore)
}

// MarkExecuted stores the effects of the certificate with the given alias.
func (t *TestFramework) MarkExecuted(alias string) {
	require.NoError(t.test, t.ObjectStore.InsertExecutedEffects(&model.TransactionEffects{
		TransactionDigest: t.Certificate(alias).Digest(),
		ExecutedEpoch:     t.EpochStore.Epoch(),
	}, nil))
}

// RequireReady asserts that exactly the certificates with the given aliases are handed off next.
func (t *TestFramework) RequireReady(aliases ...string) map[string]*txmanager.PendingCertificate {
	expected := make(map[model.TransactionDigest]string)
	for _, alias := range aliases {
		expected[t.Certificate(alias).Digest()] = alias
	}

	readyCertificates := make(map[string]*txmanager.PendingCertificate)
	for len(readyCertificates) < len(aliases) {
		select {
		case pendingCertificate, ok := <-t.ReadyQueue.Out():
			require.True(t.test, ok, "ready queue was closed")

			alias, isExpected := expected[pendingCertificate.Certificate.Digest()]
			require.True(t.test, isExpected, "unexpected certificate %s", pendingCertificate.Certificate)
			require.NotContains(t.test, readyCertificates, alias, "certificate with alias '%s' was handed off twice", alias)

			require.Empty(t.test, pendingCertificate.WaitingInputObjects)
			require.False(t.test, pendingCertificate.Stats.ReadyTime.Before(pendingCertificate.Stats.EnqueueTime))

			readyCertificates[alias] = pendingCertificate
		case <-time.After(waitTimeout):
			require.FailNow(t.test, "timed out waiting for ready certificates", "expected %v, got %d", aliases, len(readyCertificates))
		}
	}

	return readyCertificates
}

// RequireNoneReady asserts that no certificate is handed off within the given duration.
func (t *TestFramework) RequireNoneReady(duration time.Duration) {
	select {
	case pendingCertificate := <-t.ReadyQueue.Out():
		require.FailNow(t.test, "unexpected ready certificate", "%s", pendingCertificate.Certificate)
	case <-time.After(duration):
	}
}

// RequireInFlight asserts that eventually the given number of certificates is waiting.
func (t *TestFramework) RequireInFlight(expected int64) {
	require.Eventually(t.test, func() bool {
		return t.Instance.InFlight() == expected
	}, waitTimeout, time.Millisecond)
}
