package collector

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, c *Collector, name string) *dto.MetricFamily {
	metricFamilies, err := c.Registry.Gather()
	require.NoError(t, err)

	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() == name {
			return metricFamily
		}
	}

	require.FailNow(t, "metric not gathered", name)

	return nil
}

func TestCollector(t *testing.T) {
	inFlight := 3.0
	skipped := map[string]float64{"epoch_ended": 2, "already_executed": 5}

	c := New()
	require.NoError(t, c.RegisterCollection(NewCollection("executor",
		WithMetric(NewMetric("in_flight",
			WithType(Gauge),
			WithCollectFunc(func() (float64, []string) { return inFlight, nil }),
		)),
		WithMetric(NewMetric("skipped_total",
			WithType(Gauge),
			WithLabels("reason"),
			WithLabeledCollectFunc(func() map[string]float64 { return skipped }),
		)),
		WithMetric(NewMetric("ready_latency_seconds",
			WithType(Histogram),
			WithBuckets(0.1, 1),
		)),
		WithMetric(NewMetric("rejections_total",
			WithType(Counter),
		)),
	)))

	require.NoError(t, c.Collect())
	require.Equal(t, 3.0, gathered(t, c, "executor_in_flight").GetMetric()[0].GetGauge().GetValue())
	require.Len(t, gathered(t, c, "executor_skipped_total").GetMetric(), 2)

	inFlight = 1
	require.NoError(t, c.Collect())
	require.Equal(t, 1.0, gathered(t, c, "executor_in_flight").GetMetric()[0].GetGauge().GetValue())

	require.NoError(t, c.Update("executor", "ready_latency_seconds", 0.5))
	require.Equal(t, uint64(1), gathered(t, c, "executor_ready_latency_seconds").GetMetric()[0].GetHistogram().GetSampleCount())

	require.NoError(t, c.Increment("executor", "rejections_total"))
	require.NoError(t, c.Increment("executor", "rejections_total"))
	require.Equal(t, 2.0, gathered(t, c, "executor_rejections_total").GetMetric()[0].GetCounter().GetValue())

	require.ErrorIs(t, c.Increment("executor", "rejections_total", "unexpected"), ErrLabelMismatch)
	require.ErrorIs(t, c.Increment("executor", "missing"), ErrUnknownMetric)
	require.ErrorIs(t, c.Update("other", "in_flight", 1), ErrUnknownMetric)
}
