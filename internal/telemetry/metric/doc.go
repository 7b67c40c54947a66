// Package metric provides Prometheus metrics for kvopts.
//
//   - prometheus.go: registry, load and handle metrics, HTTP handler
//   - collector.go: scrape-time collector for live handle counts
//
// Metrics are exposed at /metrics in Prometheus format by `kvopts watch
// --metrics-addr`.
package metric
