package app

import (
	"github.com/iotaledger/consensus-executor/components/executor"
	"github.com/iotaledger/consensus-executor/components/metrics"
	"github.com/iotaledger/consensus-executor/components/restapi"
	"github.com/iotaledger/consensus-executor/components/restapi/executorapi"
	"github.com/iotaledger/hive.go/app"
	"github.com/iotaledger/hive.go/app/components/profiling"
	"github.com/iotaledger/hive.go/app/components/shutdown"
)

var (
	// Name of the app.
	Name = "consensus-executor"

	// Version of the app.
	Version = "0.1.0"
)

func App() *app.App {
	return app.New(Name, Version,
		app.WithInitComponent(InitComponent),
		app.WithComponents(
			shutdown.Component,
			profiling.Component,
			executor.Component,
			restapi.Component,
			executorapi.Component,
			metrics.Component,
		),
	)
}

var InitComponent *app.InitComponent

func init() {
	InitComponent = &app.InitComponent{
		Component: &app.Component{
			Name: "App",
		},
		NonHiddenFlags: []string{
			"config",
			"help",
			"version",
		},
	}
}
