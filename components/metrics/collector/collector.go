package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iotaledger/hive.go/ierrors"
)

// ErrUnknownMetric is returned if a metric is updated that was not registered.
var ErrUnknownMetric = ierrors.New("unknown metric")

// Collector is responsible for the creation and collection of the prometheus metrics.
type Collector struct {
	Registry    *prometheus.Registry
	collections map[string]*Collection
}

// New creates a new Collector with its own prometheus registry.
func New() *Collector {
	return &Collector{
		Registry:    prometheus.NewRegistry(),
		collections: make(map[string]*Collection),
	}
}

// RegisterCollection registers all metrics of the collection and runs their init functions.
func (c *Collector) RegisterCollection(collection *Collection) error {
	c.collections[collection.CollectionName] = collection

	for _, metric := range collection.metrics {
		if err := c.Registry.Register(metric.promMetric); err != nil {
			return ierrors.Wrapf(err, "failed to register metric %s_%s", collection.CollectionName, metric.Name)
		}

		if metric.initFunc != nil {
			metric.initFunc()
		}
	}

	return nil
}

// Collect runs the collect functions of all registered metrics.
func (c *Collector) Collect() (err error) {
	for _, collection := range c.collections {
		for _, metric := range collection.metrics {
			err = ierrors.Join(err, metric.collect())
		}
	}

	return err
}

// Update sets, adds or observes the given value depending on the type of the metric.
// The label values must be passed in the same order as the labels were defined.
func (c *Collector) Update(namespace string, metricName string, metricValue float64, labelValues ...string) error {
	metric, err := c.metric(namespace, metricName)
	if err != nil {
		return err
	}

	return metric.update(metricValue, labelValues...)
}

// Increment increments the value of a Gauge or Counter.
func (c *Collector) Increment(namespace string, metricName string, labelValues ...string) error {
	metric, err := c.metric(namespace, metricName)
	if err != nil {
		return err
	}

	return metric.increment(labelValues...)
}

func (c *Collector) metric(namespace string, metricName string) (*Metric, error) {
	if collection, exists := c.collections[namespace]; exists {
		if metric := collection.GetMetric(metricName); metric != nil {
			return metric, nil
		}
	}

	return nil, ierrors.Wrapf(ErrUnknownMetric, "%s_%s", namespace, metricName)
}
