package metrics

import (
	"runtime"
	"strconv"

	"github.com/iotaledger/consensus-executor/components/metrics/collector"
)

const (
	infoNamespace = "info"

	nodeOS   = "node_os"
	epoch    = "epoch"
	memUsage = "memory_usage_bytes"
)

var InfoMetrics = collector.NewCollection(infoNamespace,
	collector.WithMetric(collector.NewMetric(nodeOS,
		collector.WithType(collector.Gauge),
		collector.WithHelp("Node OS data."),
		collector.WithLabels("OS", "ARCH", "NUM_CPU"),
		collector.WithInitFunc(func() {
			updateMetric(infoNamespace, nodeOS, 1, runtime.GOOS, runtime.GOARCH, strconv.Itoa(runtime.GOMAXPROCS(0)))
		}),
	)),
	collector.WithMetric(collector.NewMetric(epoch,
		collector.WithType(collector.Gauge),
		collector.WithHelp("The epoch the executor schedules certificates in."),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			return float64(deps.Executor.CurrentEpochStore().Epoch()), nil
		}),
	)),
	collector.WithMetric(collector.NewMetric(memUsage,
		collector.WithType(collector.Gauge),
		collector.WithHelp("The memory usage in bytes of allocated heap objects"),
		collector.WithCollectFunc(func() (metricValue float64, labelValues []string) {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			return float64(m.Alloc), nil
		}),
	)),
)
