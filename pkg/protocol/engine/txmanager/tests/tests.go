package txmanagertests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
)

func TestAll(t *testing.T, frameworkProvider func(*testing.T) *TestFramework) {
	for testName, testCase := range map[string]func(*testing.T, *TestFramework){
		"TestReadyWithAvailableInputs":   TestReadyWithAvailableInputs,
		"TestReadyAfterInputsArrive":     TestReadyAfterInputsArrive,
		"TestExecutedBeforeInputs":       TestExecutedBeforeInputs,
		"TestWrongEpochFiltered":         TestWrongEpochFiltered,
		"TestSharedInputs":               TestSharedInputs,
		"TestReceivingObjects":           TestReceivingObjects,
		"TestExpectedEffectsDigest":      TestExpectedEffectsDigest,
		"TestEnqueueVerifiedCertificate": TestEnqueueVerifiedCertificate,
		"TestEpochEnd":                   TestEpochEnd,
	} {
		t.Run(testName, func(t *testing.T) { testCase(t, frameworkProvider(t)) })
	}
}

func TestReadyWithAvailableInputs(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.CreateObject("coin2", 4)
	tf.InsertObjects("coin1", "coin2")

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1", "coin2"})
	tf.Enqueue("tx1")

	readyCertificates := tf.RequireReady("tx1")
	require.Nil(t, readyCertificates["tx1"].ExpectedEffectsDigest)

	tf.RequireNoneReady(20 * time.Millisecond)
	tf.RequireInFlight(0)
}

func TestReadyAfterInputsArrive(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.CreateObject("coin2", 1)
	tf.CreateObject("coin3", 1)
	tf.InsertObjects("coin1")

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1", "coin2"})
	tf.CreateCertificate("tx2", tf.EpochStore.Epoch(), []string{"coin3"})
	tf.Enqueue("tx1", "tx2")

	tf.RequireNoneReady(20 * time.Millisecond)
	tf.RequireInFlight(2)

	tf.InsertObjects("coin3")
	tf.RequireReady("tx2")
	tf.RequireInFlight(1)

	tf.InsertObjects("coin2")
	tf.RequireReady("tx1")
	tf.RequireInFlight(0)
}

func TestExecutedBeforeInputs(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"})
	tf.MarkExecuted("tx1")
	tf.Enqueue("tx1")

	tf.RequireInFlight(0)

	tf.InsertObjects("coin1")
	tf.RequireNoneReady(20 * time.Millisecond)
}

func TestWrongEpochFiltered(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.InsertObjects("coin1")

	tf.CreateCertificate("stale", tf.EpochStore.Epoch()-1, []string{"coin1"})
	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"})
	tf.Enqueue("stale", "tx1")

	tf.RequireReady("tx1")
	tf.RequireNoneReady(20 * time.Millisecond)
}

func TestSharedInputs(t *testing.T, tf *TestFramework) {
	tf.CreateObject("pool", 1)
	tf.InsertObjects("pool")

	tf.CreateCertificate("unassigned", tf.EpochStore.Epoch(), nil, tf.WithSharedInput("pool"))
	tf.CreateCertificate("assigned", tf.EpochStore.Epoch(), nil, tf.WithSharedInput("pool"))
	tf.AssignSharedVersion("assigned", "pool", 2)

	tf.Enqueue("unassigned", "assigned")

	tf.RequireInFlight(1)
	tf.RequireNoneReady(20 * time.Millisecond)

	tf.InsertObjectVersion("pool", 2)
	tf.RequireReady("assigned")
	tf.RequireInFlight(0)
}

func TestReceivingObjects(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.CreateObject("parcel", 3)
	tf.InsertObjects("coin1")

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"}, tf.WithReceivingObject("parcel"))
	tf.Enqueue("tx1")

	tf.RequireNoneReady(20 * time.Millisecond)

	tf.InsertObjectVersion("parcel", 4)
	tf.RequireReady("tx1")
}

func TestExpectedEffectsDigest(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.InsertObjects("coin1")

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"})

	expectedEffectsDigest := model.NewDigest([]byte("effects"))
	tf.EnqueueWithExpectedEffectsDigest("tx1", expectedEffectsDigest)

	readyCertificates := tf.RequireReady("tx1")
	require.NotNil(t, readyCertificates["tx1"].ExpectedEffectsDigest)
	require.Equal(t, expectedEffectsDigest, *readyCertificates["tx1"].ExpectedEffectsDigest)
}

func TestEnqueueVerifiedCertificate(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)
	tf.InsertObjects("coin1")

	certificate := tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"})
	verifiedCertificate := model.NewVerifiedCertificate(certificate.TransactionData(), certificate.Epoch(), []byte("signature"))

	tf.Instance.EnqueueCertificates([]*model.VerifiedCertificate{verifiedCertificate}, tf.EpochStore)

	tf.RequireReady("tx1")
}

func TestEpochEnd(t *testing.T, tf *TestFramework) {
	tf.CreateObject("coin1", 1)

	tf.CreateCertificate("tx1", tf.EpochStore.Epoch(), []string{"coin1"})
	tf.Enqueue("tx1")
	tf.RequireInFlight(1)

	tf.EpochStore.End()
	tf.RequireInFlight(0)

	tf.InsertObjects("coin1")
	tf.RequireNoneReady(20 * time.Millisecond)

	tf.CreateCertificate("tx2", tf.EpochStore.Epoch(), []string{"coin1"})
	tf.Enqueue("tx2")
	tf.RequireInFlight(0)
	tf.RequireNoneReady(20 * time.Millisecond)
}
