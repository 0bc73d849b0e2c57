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
	// Engine metrics
	OutcomesApplied       *prometheus.CounterVec
	RecommendationsServed prometheus.Counter
	RegimeSignalsReceived *prometheus.CounterVec
	ClampEvents           *prometheus.CounterVec
	CompoundEvents        prometheus.Counter
	CompoundResets        prometheus.Counter
	ConfigUpdates         prometheus.Counter
	ConfigUpdatesRejected prometheus.Counter
	EvaluationTicks       prometheus.Counter

	// Current state gauges
	StreakMultiplier   prometheus.Gauge
	RegimeConfidence   prometheus.Gauge
	CombinedMultiplier prometheus.Gauge
	RecommendedSize    prometheus.Gauge
	CompoundSize       prometheus.Gauge

	// Feed metrics
	FeedMessagesReceived *prometheus.CounterVec
	FeedReconnects       prometheus.Counter
	FeedErrors           prometheus.Counter

	// Storage metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "position_sizing"
	}

	return &Metrics{
		// Engine metrics
		OutcomesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "outcomes_applied_total",
			Help:      "Total number of trade outcomes applied by result",
		}, []string{"result"}),
		RecommendationsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "recommendations_served_total",
			Help:      "Total number of size recommendations served",
		}),
		RegimeSignalsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "regime_signals_received_total",
			Help:      "Total number of regime signals received by label",
		}, []string{"label"}),
		ClampEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "clamp_events_total",
			Help:      "Total number of recommendations that touched a multiplier bound",
		}, []string{"bound"}),
		CompoundEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compound_events_total",
			Help:      "Total number of profit events that grew the compound size",
		}),
		CompoundResets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compound_resets_total",
			Help:      "Total number of explicit compound resets",
		}),
		ConfigUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "config_updates_total",
			Help:      "Total number of configuration replacements applied",
		}),
		ConfigUpdatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "config_updates_rejected_total",
			Help:      "Total number of configuration replacements rejected by validation",
		}),
		EvaluationTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_ticks_total",
			Help:      "Total number of evaluation ticks processed",
		}),

		// Current state gauges
		StreakMultiplier: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "streak_multiplier",
			Help:      "Current streak multiplier",
		}),
		RegimeConfidence: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "regime_confidence",
			Help:      "Confidence derived from the last regime signal",
		}),
		CombinedMultiplier: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "combined_multiplier",
			Help:      "Clamped combined multiplier of the last recommendation",
		}),
		RecommendedSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "recommended_size",
			Help:      "Final size of the last recommendation",
		}),
		CompoundSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compound_size",
			Help:      "Current compound working size",
		}),

		// Feed metrics
		FeedMessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_received_total",
			Help:      "Total number of feed messages received by type",
		}, []string{"type"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		FeedErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed read or decode errors",
		}),

		// Storage metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by path and method",
		}, []string{"path", "method"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOutcome increments the outcomes counter for a win or loss.
func RecordOutcome(isWin bool) {
	if isWin {
		DefaultMetrics.OutcomesApplied.WithLabelValues("win").Inc()
	} else {
		DefaultMetrics.OutcomesApplied.WithLabelValues("loss").Inc()
	}
}

// RecordRecommendation records a served recommendation and its gauges.
func RecordRecommendation(finalSize, combined float64, atMin, atMax bool) {
	DefaultMetrics.RecommendationsServed.Inc()
	DefaultMetrics.RecommendedSize.Set(finalSize)
	DefaultMetrics.CombinedMultiplier.Set(combined)
	if atMin {
		DefaultMetrics.ClampEvents.WithLabelValues("min").Inc()
	}
	if atMax {
		DefaultMetrics.ClampEvents.WithLabelValues("max").Inc()
	}
}

// RecordRegimeSignal records a received regime signal.
func RecordRegimeSignal(label string, confidence float64) {
	DefaultMetrics.RegimeSignalsReceived.WithLabelValues(label).Inc()
	DefaultMetrics.RegimeConfidence.Set(confidence)
}

// RecordFeedMessage increments the feed message counter for a type.
func RecordFeedMessage(msgType string) {
	DefaultMetrics.FeedMessagesReceived.WithLabelValues(msgType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
