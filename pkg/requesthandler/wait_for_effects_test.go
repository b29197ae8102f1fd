package requesthandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	rejectionsv1 "github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections/v1"
	"github.com/iotaledger/consensus-executor/pkg/storage/objectstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/runtime/module"
	"github.com/iotaledger/hive.go/runtime/options"
)

type testFramework struct {
	RequestHandler *RequestHandler
	ObjectStore    *objectstore.Store

	test *testing.T
}

func newTestFramework(t *testing.T, opts ...options.Option[RequestHandler]) *testFramework {
	tf := &testFramework{
		ObjectStore: objectstore.New(module.NewTestModule(t), mapdb.NewMapDB()),
		test:        t,
	}

	tracker := rejectionsv1.New(module.NewTestModule(t), rejectionsv1.WithExpirationPollInterval(5*time.Millisecond))
	tf.RequestHandler = New(tracker, tf.ObjectStore, opts...)
	t.Cleanup(tf.RequestHandler.Shutdown)

	return tf
}

func (t *testFramework) position(round model.Round) model.TransactionPosition {
	return model.NewTransactionPosition(model.NewBlockRef(round, 1, model.NewDigest([]byte("block"))), 0)
}

func (t *testFramework) request(digest model.TransactionDigest, position model.TransactionPosition, includeAll bool) *model.RawWaitForEffectsRequest {
	request, err := model.NewRawWaitForEffectsRequest(&model.WaitForEffectsRequest{
		TransactionDigest:    digest,
		TransactionPosition:  position,
		IncludeEvents:        includeAll,
		IncludeInputObjects:  includeAll,
		IncludeOutputObjects: includeAll,
	})
	require.NoError(t.test, err)

	return request
}

func (t *testFramework) executeTransaction(digest model.TransactionDigest) (*model.TransactionEffects, *model.Object, *model.Object) {
	input := &model.Object{ID: model.ObjectIDFromData([]byte("coin")), Version: 1, Contents: []byte("100")}
	output := &model.Object{ID: input.ID, Version: 2, Contents: []byte("90")}
	require.NoError(t.test, t.ObjectStore.InsertObject(input))
	require.NoError(t.test, t.ObjectStore.InsertObject(output))

	effects := &model.TransactionEffects{
		TransactionDigest: digest,
		ExecutedEpoch:     1,
		Inputs:            []model.ObjectRef{input.Ref()},
		Outputs:           []model.ObjectRef{output.Ref()},
	}
	require.NoError(t.test, t.ObjectStore.InsertExecutedEffects(effects, &model.TransactionEvents{Events: [][]byte{[]byte("transfer")}}))

	return effects, input, output
}

func requireReason(t *testing.T, expected rejections.Reason, err error) {
	require.ErrorIs(t, err, rejections.ErrRejectedByConsensus)

	reason, ok := rejections.ReasonFromError(err)
	require.True(t, ok)
	require.Equal(t, expected, reason)
}

func TestRequestHandler_Executed(t *testing.T) {
	tf := newTestFramework(t)

	digest := model.NewDigest([]byte("tx"))
	effects, input, output := tf.executeTransaction(digest)

	rawResponse, err := tf.RequestHandler.WaitForEffects(context.Background(), tf.request(digest, tf.position(1), true))
	require.NoError(t, err)

	response, err := rawResponse.Decode()
	require.NoError(t, err)
	require.Equal(t, effects.Digest(), response.Effects.Digest())
	require.Equal(t, [][]byte{[]byte("transfer")}, response.Events.Events)
	require.Equal(t, []*model.Object{input}, response.InputObjects)
	require.Equal(t, []*model.Object{output}, response.OutputObjects)
	require.EqualValues(t, 1, tf.RequestHandler.CachedResponses())

	rawResponse, err = tf.RequestHandler.WaitForEffects(context.Background(), tf.request(digest, tf.position(1), false))
	require.NoError(t, err)
	require.Nil(t, rawResponse.Events)
	require.Empty(t, rawResponse.InputObjects)
	require.EqualValues(t, 2, tf.RequestHandler.CachedResponses())

	// the position does not change the effects, so another position reuses the cached response
	rawResponse, err = tf.RequestHandler.WaitForEffects(context.Background(), tf.request(digest, tf.position(7), true))
	require.NoError(t, err)
	require.Len(t, rawResponse.OutputObjects, 1)
	require.EqualValues(t, 2, tf.RequestHandler.CachedResponses())
}

func TestRequestHandler_ExecutedWhileWaiting(t *testing.T) {
	tf := newTestFramework(t)

	digest := model.NewDigest([]byte("tx"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		tf.executeTransaction(digest)
	}()

	rawResponse, err := tf.RequestHandler.WaitForEffects(context.Background(), tf.request(digest, tf.position(1), false))
	require.NoError(t, err)
	require.NotEmpty(t, rawResponse.Effects)
}

func TestRequestHandler_Rejected(t *testing.T) {
	tf := newTestFramework(t)

	position := tf.position(5)
	tf.RequestHandler.RejectTransaction(position)

	_, err := tf.RequestHandler.WaitForEffects(context.Background(), tf.request(model.NewDigest([]byte("tx")), position, true))
	requireReason(t, rejections.ReasonRejected, err)
}

func TestRequestHandler_Expired(t *testing.T) {
	tf := newTestFramework(t)

	tf.RequestHandler.UpdateLastCommittedRound(rejectionsv1.DefaultExpirationWindow + 10)

	_, err := tf.RequestHandler.WaitForEffects(context.Background(), tf.request(model.NewDigest([]byte("tx")), tf.position(2), true))
	requireReason(t, rejections.ReasonExpired, err)
}

func TestRequestHandler_TimedOut(t *testing.T) {
	tf := newTestFramework(t, WithWaitForEffectsTimeout(20*time.Millisecond))

	_, err := tf.RequestHandler.WaitForEffects(context.Background(), tf.request(model.NewDigest([]byte("tx")), tf.position(2), true))
	requireReason(t, rejections.ReasonTimedOut, err)
}

func TestRequestHandler_MalformedRequest(t *testing.T) {
	tf := newTestFramework(t)

	request := tf.request(model.NewDigest([]byte("tx")), tf.position(2), true)
	request.TransactionPosition = request.TransactionPosition[:3]

	_, err := tf.RequestHandler.WaitForEffects(context.Background(), request)
	require.ErrorIs(t, err, model.ErrMessageDeserialization)
}
