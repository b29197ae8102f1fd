package executor

import (
	"context"

	"go.uber.org/dig"

	"github.com/iotaledger/consensus-executor/pkg/daemon"
	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/model"
	rejectionsv1 "github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections/v1"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/consensus-executor/pkg/requesthandler"
	"github.com/iotaledger/hive.go/app"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/event"
	"github.com/iotaledger/hive.go/runtime/module"
)

func init() {
	Component = &app.Component{
		Name:      "Executor",
		DepsFunc:  func(cDeps dependencies) { deps = cDeps },
		Params:    params,
		Provide:   provide,
		Configure: configure,
		Run:       run,
	}
}

var (
	Component *app.Component
	deps      dependencies
)

type dependencies struct {
	dig.In

	Executor *executor.Executor
}

func provide(c *dig.Container) error {
	return c.Provide(func() *executor.Executor {
		return executor.New(
			module.New(log.NewLogger(log.WithName(Component.Name))),
			mapdb.NewMapDB(),
			executor.WithInitialEpoch(model.Epoch(ParamsExecutor.InitialEpoch)),
			executor.WithExecutionWorkerCount(ParamsExecutor.ExecutionWorkerCount),
			executor.WithOverloadConfig(txmanager.OverloadConfig{
				MaxTransactionAgeInQueue: ParamsExecutor.Overload.MaxTransactionAgeInQueue,
				MaxInFlightTransactions:  ParamsExecutor.Overload.MaxInFlightTransactions,
				CheckInterval:            ParamsExecutor.Overload.CheckInterval,
			}),
			executor.WithRejectionTrackerOptions(
				rejectionsv1.WithExpirationWindow(model.Round(ParamsExecutor.Rejections.ExpirationWindow)),
				rejectionsv1.WithExpirationPollInterval(ParamsExecutor.Rejections.PollInterval),
			),
			executor.WithRequestHandlerOptions(
				requesthandler.WithWaitForEffectsTimeout(ParamsExecutor.WaitForEffects.Timeout),
				requesthandler.WithResponseCacheSize(ParamsExecutor.WaitForEffects.ResponseCacheSizeBytes),
			),
		)
	})
}

func configure() error {
	deps.Executor.TransactionManager.Events.CertificateReady.Hook(func(pendingCertificate *txmanager.PendingCertificate) {
		Component.LogDebugf("CertificateReady: %s after %s", pendingCertificate.Certificate.Digest(), pendingCertificate.Stats.ReadyLatency())
	}, event.WithWorkerPool(Component.WorkerPool))

	deps.Executor.TransactionManager.Events.CertificateSkipped.Hook(func(certificate *model.Certificate, reason txmanager.SkipReason) {
		Component.LogDebugf("CertificateSkipped: %s - %s", certificate.Digest(), reason)
	}, event.WithWorkerPool(Component.WorkerPool))

	deps.Executor.RejectionTracker.Events.RoundsExpired.Hook(func(round model.Round, evictedPositions int) {
		Component.LogDebugf("RoundsExpired: %d rejected positions evicted at committed round %d", evictedPositions, round)
	}, event.WithWorkerPool(Component.WorkerPool))

	return nil
}

func run() error {
	return Component.Daemon().BackgroundWorker(Component.Name, func(ctx context.Context) {
		Component.LogInfof("Starting Executor in epoch %d ... done", deps.Executor.CurrentEpochStore().Epoch())

		if err := deps.Executor.Run(ctx); err != nil && !ierrors.Is(err, context.Canceled) {
			Component.LogErrorf("Executor stopped with error: %s", err)
		}

		Component.LogInfo("Gracefully shutting down the Executor ... done")
	}, daemon.PriorityExecutor)
}
