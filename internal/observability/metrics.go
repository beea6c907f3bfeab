package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset metrics.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	DatasetRows         prometheus.Gauge
	DatasetReady        prometheus.Gauge

	// Chart metrics.
	ChartRenders        *prometheus.CounterVec   // labels: chart, outcome={rendered,placeholder,error}
	ChartRenderDuration *prometheus.HistogramVec // labels: chart

	// Snapshot publishing metrics.
	SummaryPublishes *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset fetch-and-parse attempts by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of a dataset fetch-and-parse.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the cached observation table.",
		}),
		DatasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_ready",
			Help:      "1 when the cached table came from a successful load, 0 otherwise.",
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart artifacts written by chart and outcome.",
		}, []string{"chart", "outcome"}),
		ChartRenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_render_duration_seconds",
			Help:      "Time to render and write one chart artifact.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"chart"}),
		SummaryPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_publishes_total",
			Help:      "Summary snapshots published to Kafka by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.DatasetRows,
		m.DatasetReady,
		m.ChartRenders,
		m.ChartRenderDuration,
		m.SummaryPublishes,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetLoads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "dataset_loads_total"}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dataset_load_duration_seconds"}),
		DatasetRows:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_rows"}),
		DatasetReady:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_ready"}),
		ChartRenders:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "chart_renders_total"}, []string{"chart", "outcome"}),
		ChartRenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "chart_render_duration_seconds"}, []string{"chart"}),
		SummaryPublishes:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "summary_publishes_total"}, []string{"outcome"}),
	}
}
