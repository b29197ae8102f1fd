package executorapi

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/dig"

	"github.com/iotaledger/consensus-executor/components/restapi"
	"github.com/iotaledger/consensus-executor/pkg/executor"
	restapipkg "github.com/iotaledger/consensus-executor/pkg/restapi"
	"github.com/iotaledger/hive.go/app"
)

const (
	// RouteInfo is the route for getting the state of the executor.
	// GET returns the current epoch, the number of waiting certificates and the state of the rejection tracker.
	RouteInfo = "/info"

	// RouteWaitForEffects is the route for waiting for the effects of a transaction.
	// POST takes an encoded wait-for-effects request and returns the encoded response once the transaction was
	// executed, or a conflict if consensus rejected it, its round expired or the wait timed out.
	RouteWaitForEffects = "/wait-for-effects"

	// RouteCertificates is the route for scheduling certified transactions.
	// POST takes the encoded transaction data and schedules it in the current epoch.
	RouteCertificates = "/certificates"

	// RouteRejections is the route for reporting transactions that consensus rejected.
	// POST takes the encoded position of the rejected transaction.
	RouteRejections = "/rejections"

	// RouteCommittedRound is the route for reporting the last round committed by consensus.
	RouteCommittedRound = "/committed-rounds/:" + restapipkg.ParameterRound

	// RouteReconfigure is the route for ending the current epoch and starting the next one.
	RouteReconfigure = "/epochs/next"
)

func init() {
	Component = &app.Component{
		Name:      "ExecutorAPI",
		DepsFunc:  func(cDeps dependencies) { deps = cDeps },
		Configure: configure,
		IsEnabled: func(_ *dig.Container) bool {
			return restapi.ParamsRestAPI.Enabled
		},
	}
}

var (
	Component *app.Component
	deps      dependencies
)

type dependencies struct {
	dig.In

	Executor         *executor.Executor
	RestRouteManager *restapipkg.RestRouteManager
}

func configure() error {
	setupRoutes(deps.RestRouteManager.AddRoute("executor/v1"), deps.Executor)

	return nil
}

func setupRoutes(routeGroup *echo.Group, executorInstance *executor.Executor) {
	routeGroup.GET(RouteInfo, func(c echo.Context) error {
		return info(c, executorInstance)
	})

	routeGroup.POST(RouteWaitForEffects, func(c echo.Context) error {
		return waitForEffects(c, executorInstance)
	})

	routeGroup.POST(RouteCertificates, func(c echo.Context) error {
		return submitCertificate(c, executorInstance)
	})

	routeGroup.POST(RouteRejections, func(c echo.Context) error {
		return rejectTransaction(c, executorInstance)
	})

	routeGroup.PUT(RouteCommittedRound, func(c echo.Context) error {
		return updateLastCommittedRound(c, executorInstance)
	})

	routeGroup.POST(RouteReconfigure, func(c echo.Context) error {
		return reconfigure(c, executorInstance)
	})
}
