// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Tick metrics
	TicksTotal       prometheus.Counter
	TickErrors       prometheus.Counter
	TickLatency      prometheus.Histogram
	MarketDataErrors prometheus.Counter

	// Decision metrics
	ActionsExecuted *prometheus.CounterVec
	BudgetDenials   *prometheus.CounterVec

	// Reputation metrics
	BandChanges   *prometheus.CounterVec
	RugDetections prometheus.Counter

	// Lifecycle metrics
	StateTransitions *prometheus.CounterVec
	Terminations     prometheus.Counter

	// Pattern metrics
	AnomaliesDetected *prometheus.CounterVec

	// Event bus metrics
	EventsPublished prometheus.Gauge
	EventsDropped   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	TrackedEntities    prometheus.Gauge
	LastSuccessfulTick prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launch_sentinel"
	}

	return &Metrics{
		// Tick metrics
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "ticks_total",
			Help:      "Total number of evaluation ticks run",
		}),
		TickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tick_errors_total",
			Help:      "Total number of ticks that returned an error",
		}),
		TickLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tick_latency_seconds",
			Help:      "Tick execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MarketDataErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "snapshot_errors_total",
			Help:      "Total number of failed market snapshot fetches",
		}),

		// Decision metrics
		ActionsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "actions_executed_total",
			Help:      "Total number of executed actions by type and band",
		}, []string{"action_type", "band"}),
		BudgetDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "budget_denials_total",
			Help:      "Total number of rate-limited actions by reason",
		}, []string{"reason"}),

		// Reputation metrics
		BandChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "band_changes_total",
			Help:      "Total number of band movements by new band",
		}, []string{"new_band"}),
		RugDetections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "rug_detections_total",
			Help:      "Total number of rug detections reported",
		}),

		// Lifecycle metrics
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "state_transitions_total",
			Help:      "Total number of accepted transitions by target state",
		}, []string{"to_state"}),
		Terminations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "terminations_total",
			Help:      "Total number of terminated entities",
		}),

		// Pattern metrics
		AnomaliesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pattern",
			Name:      "anomalies_detected_total",
			Help:      "Total number of flagged anomalies by signal type",
		}, []string{"signal_type"}),

		// Event bus metrics
		EventsPublished: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "events_published",
			Help:      "Events published on the bus",
		}),
		EventsDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "events_dropped",
			Help:      "Events dropped by slow subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		TrackedEntities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "tracked_entities",
			Help:      "Number of tracked entities",
		}),
		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last successful tick",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick records one completed tick and its latency.
func RecordTick(latencySeconds float64, err bool) {
	DefaultMetrics.TicksTotal.Inc()
	DefaultMetrics.TickLatency.Observe(latencySeconds)
	if err {
		DefaultMetrics.TickErrors.Inc()
	} else {
		DefaultMetrics.LastSuccessfulTick.SetToCurrentTime()
	}
}

// RecordActionExecuted records an executed action.
func RecordActionExecuted(actionType, band string) {
	DefaultMetrics.ActionsExecuted.WithLabelValues(actionType, band).Inc()
}

// RecordBudgetDenial records a rate-limited action attempt.
func RecordBudgetDenial(reason string) {
	DefaultMetrics.BudgetDenials.WithLabelValues(reason).Inc()
}

// RecordStateTransition records an accepted lifecycle transition.
func RecordStateTransition(toState string) {
	DefaultMetrics.StateTransitions.WithLabelValues(toState).Inc()
}

// RecordAnomaly records a flagged anomaly.
func RecordAnomaly(signalType string) {
	DefaultMetrics.AnomaliesDetected.WithLabelValues(signalType).Inc()
}

// RecordDBQuery records a database query duration and optional error.
func RecordDBQuery(database, operation string, durationSeconds float64, err bool) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(durationSeconds)
	if err {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateBusCounters mirrors the bus publish/drop counters into gauges.
func UpdateBusCounters(published, dropped uint64) {
	DefaultMetrics.EventsPublished.Set(float64(published))
	DefaultMetrics.EventsDropped.Set(float64(dropped))
}

// UpdateTrackedEntities sets the tracked entity gauge.
func UpdateTrackedEntities(n int) {
	DefaultMetrics.TrackedEntities.Set(float64(n))
}
