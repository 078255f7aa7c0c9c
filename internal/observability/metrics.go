package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_windfield"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// simulation service.
type Metrics struct {
	ScenariosConsumed prometheus.Counter
	RecordsProduced   prometheus.Counter
	SimulationErrors  prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Solver metrics.
	TrackPointsSolved  prometheus.Counter
	TrackPointDuration prometheus.Histogram
	ConfigWarnings     *prometheus.CounterVec // labels: kind
	TerrainCache       *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.ScenariosConsumed,
		m.RecordsProduced,
		m.SimulationErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.TrackPointsSolved,
		m.TrackPointDuration,
		m.ConfigWarnings,
		m.TerrainCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		ScenariosConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_consumed_total",
			Help:      help("Total scenario messages read from the source topic."),
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_produced_total",
			Help:      help("Total station records written to the sink."),
		}),
		SimulationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_errors_total",
			Help:      help("Total scenarios that failed to parse, configure or run."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of scenarios per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-simulate-load cycle."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		TrackPointsSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_points_solved_total",
			Help:      help("Total track points for which a wind field was evaluated."),
		}),
		TrackPointDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "track_point_duration_seconds",
			Help:      help("Time to evaluate the wind field and map stations at one track point."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ConfigWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_warnings_total",
			Help:      help("Non-fatal configuration diagnostics by kind."),
		}, []string{"kind"}),
		TerrainCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terrain_cache_total",
			Help:      help("Terrain roughness cache lookups by result."),
		}, []string{"result"}),
	}
}
