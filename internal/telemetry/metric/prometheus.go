package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvopts"

// Load results used as the "result" label.
const (
	ResultOK            = "ok"
	ResultIOError       = "io_error"
	ResultParseError    = "parse_error"
	ResultUnknownOption = "unknown_option"
	ResultInvalidValue  = "invalid_value"
	ResultOther         = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Load metrics
	LoadsTotal     *prometheus.CounterVec
	LoadDuration   prometheus.Histogram
	ColumnFamilies prometheus.Gauge
	ReloadsTotal   *prometheus.CounterVec

	// Handle metrics
	HandleOps *prometheus.CounterVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// NewRegistry creates a registry with the Go runtime and process collectors
// and every kvopts metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Options file loads by result.",
		}, []string{"result"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent reading, parsing and merging an options file.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		ColumnFamilies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "column_families",
			Help:      "Column families in the last successfully loaded options file.",
		}),
		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Reloads triggered by options file changes, by result.",
		}, []string{"result"}),
		HandleOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handle_operations_total",
			Help:      "Handle creations and destructions by handle kind.",
		}, []string{"kind", "op"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LoadsTotal,
		r.LoadDuration,
		r.ColumnFamilies,
		r.ReloadsTotal,
		r.HandleOps,
	)
	return r
}

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Prometheus returns the underlying registry for components that register
// their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Register adds a collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// RecordLoad records one load. families is only used on success.
func (r *Registry) RecordLoad(result string, seconds float64, families int) {
	r.LoadsTotal.WithLabelValues(result).Inc()
	r.LoadDuration.Observe(seconds)
	if result == ResultOK {
		r.ColumnFamilies.Set(float64(families))
	}
}

// RecordReload records one change-triggered reload.
func (r *Registry) RecordReload(result string) {
	r.ReloadsTotal.WithLabelValues(result).Inc()
}

// RecordHandle records a handle creation ("create") or destruction
// ("destroy").
func (r *Registry) RecordHandle(kind, op string) {
	r.HandleOps.WithLabelValues(kind, op).Inc()
}
