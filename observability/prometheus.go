package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var _ MetricFactory = (*PromFactory)(nil)

// PromFactory is a MetricFactory backed by a Prometheus registry. Metric
// names use the dotted convention ("settle.expense.added") and are converted
// to Prometheus-legal underscored names on registration.
type PromFactory struct {
	reg prometheus.Registerer
}

// NewPromFactory creates a PromFactory that registers its metrics with reg.
// Pass prometheus.DefaultRegisterer to expose them through the default
// promhttp handler.
func NewPromFactory(reg prometheus.Registerer) *PromFactory {
	return &PromFactory{reg: reg}
}

// Counter implements MetricFactory.
func (f *PromFactory) Counter(name string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: promName(name),
		Help: name,
	})
	f.reg.MustRegister(c)
	return c
}

// Histogram implements MetricFactory.
func (f *PromFactory) Histogram(name string) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: promName(name),
		Help: name,
		// One layout for every histogram: amounts in minor units, transfer
		// counts, and millisecond durations all fit a wide exponential range.
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})
	f.reg.MustRegister(h)
	return h
}

// promName converts a dotted metric name to a Prometheus-legal one.
func promName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
