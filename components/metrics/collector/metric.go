package collector

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
)

// ErrLabelMismatch is returned if the number of label values does not match the labels of a metric.
var ErrLabelMismatch = ierrors.New("label values and labels length mismatch")

type MetricType uint8

const (
	// Gauge is a metric that represents a single numerical value that can arbitrarily go up and down.
	// During collection the collected value is set, thus the previous value is overwritten.
	Gauge MetricType = iota
	// Counter is a cumulative metric that represents a single numerical value that only ever goes up.
	// During collection the collected value is added to its current value.
	Counter
	// Histogram samples observations and counts them in configurable buckets.
	Histogram
)

// Metric is a single metric that is registered to the prometheus registry. Its value is either pulled on every scrape
// through a collect function or pushed by event handlers set up in the init function.
type Metric struct {
	Name      string
	Type      MetricType
	Namespace string

	help               string
	labels             []string
	buckets            []float64
	collectFunc        func() (value float64, labelValues []string)
	labeledCollectFunc func() map[string]float64
	initFunc           func()

	promMetric   prometheus.Collector
	resetEnabled bool

	once sync.Once
}

// NewMetric creates a new metric with given name and options.
func NewMetric(name string, opts ...options.Option[Metric]) *Metric {
	return options.Apply(&Metric{
		Name:    name,
		buckets: prometheus.DefBuckets,
	}, opts)
}

func (m *Metric) initPromMetric() {
	m.once.Do(func() {
		switch m.Type {
		case Gauge:
			gaugeOpts := prometheus.GaugeOpts{Name: m.Name, Namespace: m.Namespace, Help: m.help}
			if len(m.labels) > 0 {
				m.promMetric = prometheus.NewGaugeVec(gaugeOpts, m.labels)

				return
			}
			m.promMetric = prometheus.NewGauge(gaugeOpts)
		case Counter:
			counterOpts := prometheus.CounterOpts{Name: m.Name, Namespace: m.Namespace, Help: m.help}
			if len(m.labels) > 0 {
				m.promMetric = prometheus.NewCounterVec(counterOpts, m.labels)

				return
			}
			m.promMetric = prometheus.NewCounter(counterOpts)
		case Histogram:
			histogramOpts := prometheus.HistogramOpts{Name: m.Name, Namespace: m.Namespace, Help: m.help, Buckets: m.buckets}
			if len(m.labels) > 0 {
				m.promMetric = prometheus.NewHistogramVec(histogramOpts, m.labels)

				return
			}
			m.promMetric = prometheus.NewHistogram(histogramOpts)
		}
	})
}

func (m *Metric) collect() error {
	if m.resetEnabled {
		m.reset()
	}

	if m.collectFunc != nil {
		value, labelValues := m.collectFunc()
		if err := m.update(value, labelValues...); err != nil {
			return err
		}
	}

	if m.labeledCollectFunc != nil {
		values := m.labeledCollectFunc()

		labelValues := make([]string, 0, len(values))
		for labelValue := range values {
			labelValues = append(labelValues, labelValue)
		}
		sort.Strings(labelValues)

		for _, labelValue := range labelValues {
			if err := m.update(values[labelValue], labelValue); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Metric) update(value float64, labelValues ...string) error {
	if len(labelValues) != len(m.labels) {
		return ierrors.Wrapf(ErrLabelMismatch, "failed to update metric %s with %v (labels %v)", m.Name, labelValues, m.labels)
	}

	switch metric := m.promMetric.(type) {
	case prometheus.Gauge:
		metric.Set(value)
	case *prometheus.GaugeVec:
		metric.WithLabelValues(labelValues...).Set(value)
	case prometheus.Counter:
		metric.Add(value)
	case *prometheus.CounterVec:
		metric.WithLabelValues(labelValues...).Add(value)
	case prometheus.Histogram:
		metric.Observe(value)
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labelValues...).Observe(value)
	}

	return nil
}

func (m *Metric) increment(labelValues ...string) error {
	if len(labelValues) != len(m.labels) {
		return ierrors.Wrapf(ErrLabelMismatch, "failed to increment metric %s with %v (labels %v)", m.Name, labelValues, m.labels)
	}

	switch metric := m.promMetric.(type) {
	case prometheus.Gauge:
		metric.Inc()
	case *prometheus.GaugeVec:
		metric.WithLabelValues(labelValues...).Inc()
	case prometheus.Counter:
		metric.Inc()
	case *prometheus.CounterVec:
		metric.WithLabelValues(labelValues...).Inc()
	}

	return nil
}

func (m *Metric) reset() {
	switch metric := m.promMetric.(type) {
	case prometheus.Gauge:
		metric.Set(0)
	case *prometheus.GaugeVec:
		metric.Reset()
	case *prometheus.CounterVec:
		metric.Reset()
	case *prometheus.HistogramVec:
		metric.Reset()
	}
}

// WithType sets the metric type: Gauge, Counter or Histogram.
func WithType(t MetricType) options.Option[Metric] {
	return func(m *Metric) {
		m.Type = t
	}
}

// WithHelp sets the help text for the metric.
func WithHelp(help string) options.Option[Metric] {
	return func(m *Metric) {
		m.help = help
	}
}

// WithLabels allows to define labels for the metric, they need to be passed in the same order when updating.
func WithLabels(labels ...string) options.Option[Metric] {
	return func(m *Metric) {
		m.labels = labels
	}
}

// WithBuckets sets the buckets of a Histogram.
func WithBuckets(buckets ...float64) options.Option[Metric] {
	return func(m *Metric) {
		m.buckets = buckets
	}
}

// WithResetBeforeCollecting resets the metric before each call of its collect function.
func WithResetBeforeCollecting(resetEnabled bool) options.Option[Metric] {
	return func(m *Metric) {
		m.resetEnabled = resetEnabled
	}
}

// WithCollectFunc defines a function that is called on each scrape. It is used for values that can be read at any time.
func WithCollectFunc(collectFunc func() (metricValue float64, labelValues []string)) options.Option[Metric] {
	return func(m *Metric) {
		m.collectFunc = collectFunc
	}
}

// WithLabeledCollectFunc defines a function that is called on each scrape of a metric with a single label. It returns
// the value per label value.
func WithLabeledCollectFunc(labeledCollectFunc func() map[string]float64) options.Option[Metric] {
	return func(m *Metric) {
		m.labeledCollectFunc = labeledCollectFunc
	}
}

// WithInitFunc defines a function that is called once when the metric is registered. It is used instead of a collect
// function when the value is pushed on events through Collector.Update or Collector.Increment.
func WithInitFunc(initFunc func()) options.Option[Metric] {
	return func(m *Metric) {
		m.initFunc = initFunc
	}
}
