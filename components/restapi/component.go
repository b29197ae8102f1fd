package restapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/dig"

	"github.com/iotaledger/consensus-executor/pkg/daemon"
	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/restapi"
	"github.com/iotaledger/hive.go/app"
	"github.com/iotaledger/hive.go/ierrors"
)

func init() {
	Component = &app.Component{
		Name:      "RestAPI",
		DepsFunc:  func(cDeps dependencies) { deps = cDeps },
		Params:    params,
		Provide:   provide,
		Configure: configure,
		Run:       run,
		IsEnabled: func(_ *dig.Container) bool {
			return ParamsRestAPI.Enabled
		},
	}
}

var (
	Component *app.Component
	deps      dependencies
)

type dependencies struct {
	dig.In

	Echo             *echo.Echo
	Executor         *executor.Executor
	RestRouteManager *restapi.RestRouteManager
}

func provide(c *dig.Container) error {
	if err := c.Provide(func() *echo.Echo {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())
		e.Use(middleware.CORS())
		e.Use(middleware.Gzip())
		e.Use(middleware.BodyLimit(ParamsRestAPI.Limits.MaxBodyLength))

		if ParamsRestAPI.DebugRequestLoggerEnabled {
			e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
				LogMethod: true,
				LogURI:    true,
				LogStatus: true,
				LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
					Component.LogDebugf("%s %s: %d", v.Method, v.URI, v.Status)

					return nil
				},
			}))
		}

		return e
	}); err != nil {
		Component.LogPanic(err.Error())
	}

	if err := c.Provide(restapi.NewRestRouteManager); err != nil {
		Component.LogPanic(err.Error())
	}

	return nil
}

func configure() error {
	exposedRoutes, err := restapi.CompileRoutesAsRegexes(ParamsRestAPI.ExposedRoutes)
	if err != nil {
		return err
	}

	deps.Echo.Use(restapi.ExposedRoutesMiddleware(exposedRoutes))
	setupRoutes()

	return nil
}

func run() error {
	Component.LogInfo("Starting REST-API server ...")

	if err := Component.Daemon().BackgroundWorker("REST-API server", func(ctx context.Context) {
		Component.LogInfo("Starting REST-API server ... done")

		bindAddr := ParamsRestAPI.BindAddress

		go func() {
			Component.LogInfof("You can now access the API using: http://%s", bindAddr)
			if err := deps.Echo.Start(bindAddr); err != nil && !ierrors.Is(err, http.ErrServerClosed) {
				Component.LogWarnf("Stopped REST-API server due to an error (%s)", err)
			}
		}()

		<-ctx.Done()
		Component.LogInfo("Stopping REST-API server ...")

		shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCtxCancel()

		//nolint:contextcheck // false positive
		if err := deps.Echo.Shutdown(shutdownCtx); err != nil {
			Component.LogWarn(err.Error())
		}

		Component.LogInfo("Stopping REST-API server ... done")
	}, daemon.PriorityRestAPI); err != nil {
		Component.LogPanicf("failed to start worker: %s", err)
	}

	return nil
}
