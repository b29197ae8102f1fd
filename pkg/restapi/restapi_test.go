package restapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/hive.go/ierrors"
)

func TestHTTPError(t *testing.T) {
	rejected := HTTPError(ierrors.Wrap(rejections.NewRejectedByConsensusError(rejections.ReasonExpired), "failed"))
	require.Equal(t, http.StatusConflict, rejected.Code)
	require.Equal(t, rejections.ReasonExpired, rejected.Message.(*ErrorResponse).Reason)

	require.Equal(t, http.StatusBadRequest, HTTPError(ierrors.Join(model.ErrMessageDeserialization, ierrors.New("truncated"))).Code)
	require.Equal(t, http.StatusBadRequest, HTTPError(ErrInvalidParameter).Code)
	require.Equal(t, http.StatusServiceUnavailable, HTTPError(executor.ErrShutdown).Code)
	require.Equal(t, http.StatusInternalServerError, HTTPError(ierrors.New("storage failure")).Code)
}

func TestParseRoundParam(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames(ParameterRound)

	c.SetParamValues("42")
	round, err := ParseRoundParam(c)
	require.NoError(t, err)
	require.Equal(t, model.Round(42), round)

	c.SetParamValues("-1")
	_, err = ParseRoundParam(c)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestReadBody(t *testing.T) {
	e := echo.New()

	body, err := ReadBody(e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")), httptest.NewRecorder()))
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), body)

	_, err = ReadBody(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder()))
	require.ErrorIs(t, err, ErrInvalidBody)
}

func TestExposedRoutesMiddleware(t *testing.T) {
	exposedRoutes, err := CompileRoutesAsRegexes([]string{"/health", "/api/executor/v1/*"})
	require.NoError(t, err)

	e := echo.New()
	e.Use(ExposedRoutesMiddleware(exposedRoutes))

	routeManager := NewRestRouteManager(e)
	routeManager.AddRoute("executor/v1").GET("/info", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	routeManager.AddRoute("debug/v1").GET("/info", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.Equal(t, []string{"debug/v1", "executor/v1"}, routeManager.Routes())

	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/executor/v1/info", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/debug/v1/info", nil))
	require.Equal(t, http.StatusForbidden, recorder.Code)
}
