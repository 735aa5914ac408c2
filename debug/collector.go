package debug

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a registry's metrics to Prometheus. Values are computed
// from the record set at scrape time.
type Collector struct {
	r *Registry

	total     *prometheus.Desc
	active    *prometheus.Desc
	completed *prometheus.Desc
	emissions *prometheus.Desc
	errors    *prometheus.Desc
	lifetime  *prometheus.Desc
	leaks     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for r. Metric names are prefixed with
// namespace when it is not empty.
func NewCollector(r *Registry, namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "subscriptions", name), help, nil, nil)
	}
	return &Collector{
		r:         r,
		total:     desc("tracked", "Retained subscription records."),
		active:    desc("active", "Tracked subscriptions that are still open."),
		completed: desc("completed", "Retained records of finished subscriptions."),
		emissions: desc("emissions", "Values emitted by retained records."),
		errors:    desc("errors", "Errors emitted by retained records."),
		lifetime:  desc("average_lifetime_seconds", "Mean lifetime of finished subscriptions."),
		leaks:     desc("leak_score", "Active subscriptions suspected of leaking."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.active
	ch <- c.completed
	ch <- c.emissions
	ch <- c.errors
	ch <- c.lifetime
	ch <- c.leaks
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.r.Metrics()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.total, float64(m.Total))
	gauge(c.active, float64(m.Active))
	gauge(c.completed, float64(m.Completed))
	gauge(c.emissions, float64(m.Emissions))
	gauge(c.errors, float64(m.Errors))
	gauge(c.lifetime, m.AverageLifetime.Seconds())
	gauge(c.leaks, float64(c.r.LeakScore()))
}
