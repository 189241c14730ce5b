// Package metrics provides the centralized Prometheus metrics registry for the
// yield engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ExperimentsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "experiments_created_total",
		Help:      "Total number of experiments created",
	})
	ExperimentsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "experiments_deleted_total",
		Help:      "Total number of experiments deleted",
	})
	MetricComputationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "metric_computations_total",
		Help:      "Total number of per-experiment metric computations",
	})
	RecommendationsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "recommendations_generated_total",
		Help:      "Total number of yield recommendations generated by type",
	}, []string{"type"})
	RecommendationTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "recommendation_transitions_total",
		Help:      "Total number of recommendation lifecycle transitions by target status",
	}, []string{"status"})
	RecommendationsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "recommendations_expired_total",
		Help:      "Total number of recommendations expired by the sweep",
	})
)

// Gauge metrics
var (
	PendingRecommendations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "yield_engine",
		Name:      "pending_recommendations",
		Help:      "Number of recommendations currently pending",
	})
	AnalysisCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "analysis_cache_hits_total",
		Help:      "Total number of analysis cache hits",
	})
	AnalysisCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Name:      "analysis_cache_misses_total",
		Help:      "Total number of analysis cache misses",
	})
)

// Histogram metrics
var (
	MetricComputationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "yield_engine",
		Name:      "metric_computation_duration_seconds",
		Help:      "Duration of per-experiment metric computation in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	RecommendationGenerationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "yield_engine",
		Name:      "recommendation_generation_duration_seconds",
		Help:      "Duration of recommendation generation runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ImpactMeasurementDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "yield_engine",
		Name:      "impact_measurement_duration_seconds",
		Help:      "Duration of impact measurement computations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ExperimentsCreatedTotal)
		registry.MustRegister(ExperimentsDeletedTotal)
		registry.MustRegister(MetricComputationsTotal)
		registry.MustRegister(RecommendationsGeneratedTotal)
		registry.MustRegister(RecommendationTransitionsTotal)
		registry.MustRegister(RecommendationsExpiredTotal)

		registry.MustRegister(PendingRecommendations)
		registry.MustRegister(AnalysisCacheHits)
		registry.MustRegister(AnalysisCacheMisses)

		registry.MustRegister(MetricComputationDuration)
		registry.MustRegister(RecommendationGenerationDuration)
		registry.MustRegister(ImpactMeasurementDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordExperimentCreated records an experiment creation event.
func RecordExperimentCreated() {
	ExperimentsCreatedTotal.Inc()
}

// RecordMetricComputation records one metric computation and its duration.
func RecordMetricComputation(durationSeconds float64) {
	MetricComputationsTotal.Inc()
	MetricComputationDuration.Observe(durationSeconds)
}

// RecordRecommendationGenerated records a generated recommendation by type.
func RecordRecommendationGenerated(recType string) {
	RecommendationsGeneratedTotal.WithLabelValues(recType).Inc()
}

// RecordRecommendationTransition records a lifecycle transition.
func RecordRecommendationTransition(status string) {
	RecommendationTransitionsTotal.WithLabelValues(status).Inc()
}
