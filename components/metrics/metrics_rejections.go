package metrics

import (
	"github.com/iotaledger/consensus-executor/components/metrics/collector"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
)

const (
	rejectionsNamespace = "rejections"

	rejectedPositions  = "rejected_positions"
	retainedRounds     = "retained_rounds"
	lastCommittedRound = "last_committed_round"
	rejectionsTotal    = "rejections_total"
	expiredPositions   = "expired_positions_total"
	resolvedWaits      = "resolved_waits_total"
)

var resolutionReasons = []rejections.Reason{
	rejections.ReasonRejected,
	rejections.ReasonExpired,
	rejections.ReasonTimedOut,
}

var RejectionMetrics = collector.NewCollection(rejectionsNamespace,
	collector.WithMetric(collector.NewMetric(rejectedPositions,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of retained rejected transaction positions."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			positions, _ := deps.Executor.RejectionTracker.Size()

			return float64(positions), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(retainedRounds,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of rounds with retained rejected positions."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			_, rounds := deps.Executor.RejectionTracker.Size()

			return float64(rounds), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(lastCommittedRound,
		collector.WithType(collector.Gauge),
		collector.WithHelp("The last round committed by consensus."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			round, _ := deps.Executor.RejectionTracker.LastCommittedRound()

			return float64(round), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(rejectionsTotal,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of rejections reported by consensus."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.Metrics.RejectedTransactions.Load()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(expiredPositions,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Number of rejected positions that were evicted after leaving the expiration window."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.Metrics.ExpiredPositions.Load()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(resolvedWaits,
		collector.WithType(collector.Gauge),
		collector.WithLabels("reason"),
		collector.WithHelp("Number of resolved waits for a rejection, by reason."),
		collector.WithLabeledCollectFunc(func() map[string]float64 {
			resolved := make(map[string]float64, len(resolutionReasons))
			for _, reason := range resolutionReasons {
				resolved[string(reason)] = float64(deps.Executor.Metrics.ResolvedWaitsByReason(reason))
			}

			return resolved
		}),
	)),
)
