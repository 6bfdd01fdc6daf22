package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for mileage resolution.
type Metrics struct {
	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,not_configured,upstream,not_found}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	Fallbacks        *prometheus.CounterVec   // labels: provider (the provider that failed over)

	// Cache metrics.
	CacheLookups     *prometheus.CounterVec // labels: provider, result={hit,miss,expired,error}
	CacheWriteErrors *prometheus.CounterVec // labels: provider

	// Resolution metrics.
	Resolutions       *prometheus.CounterVec // labels: outcome={resolved,failed}
	BatchSize         prometheus.Histogram
	BatchInFlight     prometheus.Gauge
	BatchLaneFailures prometheus.Counter

	// Lane pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	ParseErrors             prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.Fallbacks,
		m.CacheLookups,
		m.CacheWriteErrors,
		m.Resolutions,
		m.BatchSize,
		m.BatchInFlight,
		m.BatchLaneFailures,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.ParseErrors,
		m.PipelineRunning,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "provider_requests_total",
			Help:      "Routing provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mileage",
			Name:      "provider_request_duration_seconds",
			Help:      "Routing provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "fallbacks_total",
			Help:      "Times resolution advanced past a failed provider.",
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "cache_lookups_total",
			Help:      "Distance cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		CacheWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "cache_write_errors_total",
			Help:      "Swallowed distance cache write failures.",
		}, []string{"provider"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "resolutions_total",
			Help:      "Lane resolutions by outcome.",
		}, []string{"outcome"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mileage",
			Name:      "batch_size",
			Help:      "Number of lanes per batch resolution.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mileage",
			Name:      "batch_in_flight",
			Help:      "Lane resolutions currently running inside batches.",
		}),
		BatchLaneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "batch_lane_failures_total",
			Help:      "Batch lanes replaced by the error placeholder.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "messages_consumed_total",
			Help:      "Lane request messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "messages_produced_total",
			Help:      "Lane distance messages written to the sink topic.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "parse_errors_total",
			Help:      "Lane request messages skipped as malformed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mileage",
			Name:      "pipeline_running",
			Help:      "1 when the lane pipeline is active, 0 when shut down.",
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mileage",
			Name:      "pipeline_batch_duration_seconds",
			Help:      "Duration of a complete extract-resolve-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
