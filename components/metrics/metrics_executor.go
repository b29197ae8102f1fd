package metrics

import (
	"github.com/iotaledger/consensus-executor/components/metrics/collector"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/txmanager"
	"github.com/iotaledger/hive.go/runtime/event"
)

const (
	executorNamespace = "executor"

	inFlightCertificates   = "in_flight_certificates"
	readyCertificates      = "ready_certificates_total"
	dispatchedCertificates = "dispatched_certificates_total"
	skippedCertificates    = "skipped_certificates_total"
	readyLatency           = "ready_latency_seconds"
	cachedResponses        = "cached_responses"
)

var skipReasons = []txmanager.SkipReason{
	txmanager.SkipReasonWrongEpoch,
	txmanager.SkipReasonUnresolvedInputs,
	txmanager.SkipReasonAlreadyExecuted,
	txmanager.SkipReasonEpochEnded,
}

var ExecutorMetrics = collector.NewCollection(executorNamespace,
	collector.WithMetric(collector.NewMetric(inFlightCertificates,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of certificates that wait for their inputs."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.TransactionManager.InFlight()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(readyCertificates,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of certificates that were handed off to execution."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.Metrics.ReadyCertificates.Load()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(dispatchedCertificates,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of ready certificates that were dispatched to the execution workers."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.Metrics.DispatchedCertificates.Load()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(skippedCertificates,
		collector.WithType(collector.Gauge),
		collector.WithLabels("reason"),
		collector.WithHelp("Number of certificates that were dropped without being handed off, by reason."),
		collector.WithLabeledCollectFunc(func() map[string]float64 {
			skipped := make(map[string]float64, len(skipReasons))
			for _, reason := range skipReasons {
				skipped[string(reason)] = float64(deps.Executor.Metrics.SkippedCertificatesByReason(reason))
			}

			return skipped
		}),
	)),
	collector.WithMetric(collector.NewMetric(readyLatency,
		collector.WithType(collector.Histogram),
		collector.WithBuckets(0.001, 0.01, 0.1, 0.5, 1, 5, 10, 60),
		collector.WithHelp("Time certificates waited for their inputs."),
		collector.WithInitFunc(func() {
			deps.Executor.TransactionManager.Events.CertificateReady.Hook(func(pendingCertificate *txmanager.PendingCertificate) {
				updateMetric(executorNamespace, readyLatency, pendingCertificate.Stats.ReadyLatency().Seconds())
			}, event.WithWorkerPool(Component.WorkerPool))
		}),
	)),
	collector.WithMetric(collector.NewMetric(cachedResponses,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of encoded wait-for-effects responses in the cache."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.RequestHandler.CachedResponses()), nil
		}),
	)),
)
