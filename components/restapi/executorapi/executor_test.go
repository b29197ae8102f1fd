package executorapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	rejectionsv1 "github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections/v1"
	"github.com/iotaledger/consensus-executor/pkg/requesthandler"
	"github.com/iotaledger/consensus-executor/pkg/restapi"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/module"
)

type testFramework struct {
	test     *testing.T
	echo     *echo.Echo
	Executor *executor.Executor
}

func newTestFramework(t *testing.T) *testFramework {
	tf := &testFramework{
		test: t,
		echo: echo.New(),
		Executor: executor.New(module.NewTestModule(t), mapdb.NewMapDB(),
			executor.WithRejectionTrackerOptions(rejectionsv1.WithExpirationPollInterval(5*time.Millisecond)),
			executor.WithRequestHandlerOptions(requesthandler.WithWaitForEffectsTimeout(100*time.Millisecond)),
		),
	}
	t.Cleanup(tf.Executor.Shutdown)

	setupRoutes(tf.echo.Group("/api/executor/v1"), tf.Executor)

	return tf
}

func (tf *testFramework) request(method string, route string, body []byte) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	tf.echo.ServeHTTP(recorder, httptest.NewRequest(method, "/api/executor/v1"+route, bytes.NewReader(body)))

	return recorder
}

func (tf *testFramework) waitForEffects(digest model.TransactionDigest, position model.TransactionPosition) *httptest.ResponseRecorder {
	rawRequest, err := model.NewRawWaitForEffectsRequest(&model.WaitForEffectsRequest{
		TransactionDigest:   digest,
		TransactionPosition: position,
		IncludeEvents:       true,
	})
	require.NoError(tf.test, err)

	return tf.request(http.MethodPost, RouteWaitForEffects, lo.PanicOnErr(rawRequest.Bytes()))
}

func decodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) *T {
	result := new(T)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), result))

	return result
}

func testPosition(round model.Round) model.TransactionPosition {
	return model.NewTransactionPosition(model.NewBlockRef(round, 1, model.NewDigest([]byte("block"))), 0)
}

func TestExecutorAPI_WaitForEffects(t *testing.T) {
	tf := newTestFramework(t)

	transactionData := &model.TransactionData{Payload: []byte("transfer")}
	recorder := tf.request(http.MethodPost, RouteCertificates, lo.PanicOnErr(transactionData.Bytes()))
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Equal(t, transactionData.Digest().String(), decodeJSON[CertificateResponse](t, recorder).TransactionDigest)

	effects := &model.TransactionEffects{TransactionDigest: transactionData.Digest(), Status: model.ExecutionStatusSuccess}
	events := &model.TransactionEvents{Events: [][]byte{[]byte("transferred")}}
	require.NoError(t, tf.Executor.ObjectStore.InsertExecutedEffects(effects, events))

	recorder = tf.waitForEffects(transactionData.Digest(), testPosition(3))
	require.Equal(t, http.StatusOK, recorder.Code)

	rawResponse, err := model.RawWaitForEffectsResponseFromBytes(recorder.Body.Bytes())
	require.NoError(t, err)

	response, err := rawResponse.Decode()
	require.NoError(t, err)
	require.Equal(t, effects.Digest(), response.Effects.Digest())
	require.Equal(t, events, response.Events)
}

func TestExecutorAPI_Rejections(t *testing.T) {
	tf := newTestFramework(t)

	rejectedPosition := testPosition(10)
	require.Equal(t, http.StatusNoContent, tf.request(http.MethodPost, RouteRejections, lo.PanicOnErr(rejectedPosition.Bytes())).Code)

	recorder := tf.waitForEffects(model.NewDigest([]byte("rejected")), rejectedPosition)
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.Equal(t, rejections.ReasonRejected, decodeJSON[restapi.ErrorResponse](t, recorder).Reason)

	recorder = tf.waitForEffects(model.NewDigest([]byte("pending")), testPosition(11))
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.Equal(t, rejections.ReasonTimedOut, decodeJSON[restapi.ErrorResponse](t, recorder).Reason)

	require.Equal(t, http.StatusNoContent, tf.request(http.MethodPut, "/committed-rounds/500", nil).Code)

	recorder = tf.waitForEffects(model.NewDigest([]byte("expired")), testPosition(12))
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.Equal(t, rejections.ReasonExpired, decodeJSON[restapi.ErrorResponse](t, recorder).Reason)

	recorder = tf.request(http.MethodGet, RouteInfo, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	info := decodeJSON[InfoResponse](t, recorder)
	require.NotNil(t, info.LastCommittedRound)
	require.Equal(t, model.Round(500), *info.LastCommittedRound)
	require.Zero(t, info.RejectedPositions)
	require.Zero(t, info.RetainedRounds)
}

func TestExecutorAPI_MalformedRequests(t *testing.T) {
	tf := newTestFramework(t)

	require.Equal(t, http.StatusBadRequest, tf.request(http.MethodPost, RouteWaitForEffects, []byte{1, 2, 3}).Code)
	require.Equal(t, http.StatusBadRequest, tf.request(http.MethodPost, RouteWaitForEffects, nil).Code)
	require.Equal(t, http.StatusBadRequest, tf.request(http.MethodPost, RouteRejections, []byte{1}).Code)
	require.Equal(t, http.StatusBadRequest, tf.request(http.MethodPost, RouteCertificates, []byte{1}).Code)
	require.Equal(t, http.StatusBadRequest, tf.request(http.MethodPut, "/committed-rounds/latest", nil).Code)
}

func TestExecutorAPI_Reconfigure(t *testing.T) {
	tf := newTestFramework(t)

	recorder := tf.request(http.MethodPost, RouteReconfigure, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, model.Epoch(1), decodeJSON[EpochResponse](t, recorder).Epoch)

	tf.Executor.Shutdown()

	require.Equal(t, http.StatusServiceUnavailable, tf.request(http.MethodPost, RouteReconfigure, nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, tf.request(http.MethodPost, RouteCertificates, lo.PanicOnErr((&model.TransactionData{}).Bytes())).Code)
}
