package metric

import "github.com/prometheus/client_golang/prometheus"

// HandleCollector reports live handle counts, read at scrape time.
type HandleCollector struct {
	source func() map[string]int
	desc   *prometheus.Desc
}

// NewHandleCollector creates a collector reading counts from source.
func NewHandleCollector(source func() map[string]int) *HandleCollector {
	return &HandleCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "handles_live"),
			"Handles currently allocated, by kind.",
			[]string{"kind"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *HandleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *HandleCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, n := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), kind)
	}
}
