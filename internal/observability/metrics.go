package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "occurrence_agg"

// Metrics holds the Prometheus counters, histograms, and gauges for dataset
// loading, report building, and the selection pipeline.
type Metrics struct {
	// Dataset metrics.
	RecordsLoaded prometheus.Gauge
	RegionsLoaded *prometheus.GaugeVec // labels: level={province,canton}
	LoadDuration  prometheus.Histogram

	// Report metrics.
	ReportsBuilt   *prometheus.CounterVec // labels: transport={http,kafka,cli}
	ReportDuration prometheus.Histogram

	// Pipeline metrics.
	SelectionsConsumed prometheus.Counter
	ReportsProduced    prometheus.Counter
	TransformErrors    prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_loaded",
			Help:      "Occurrence records in the loaded dataset.",
		}),
		RegionsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_loaded",
			Help:      "Regions in the loaded registry by level.",
		}, []string{"level"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of loading occurrences and region layers.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ReportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Species reports built by transport.",
		}, []string{"transport"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Duration of filtering, aggregating and classifying one species.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		SelectionsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_consumed_total",
			Help:      "Total selection messages read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total report messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total selection messages that could not be turned into a report.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Forward geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RecordsLoaded,
		m.RegionsLoaded,
		m.LoadDuration,
		m.ReportsBuilt,
		m.ReportDuration,
		m.SelectionsConsumed,
		m.ReportsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsLoaded:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "records_loaded"}),
		RegionsLoaded:           prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "regions_loaded"}, []string{"level"}),
		LoadDuration:            prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dataset_load_duration_seconds"}),
		ReportsBuilt:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "reports_built_total"}, []string{"transport"}),
		ReportDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "report_duration_seconds"}),
		SelectionsConsumed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "selections_consumed_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reports_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		GeocodeRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "geocode_enabled"}),
	}
}
