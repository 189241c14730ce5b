package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordExperimentCreated(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordExperimentCreated()
	})
}

func TestRecordMetricComputation(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordMetricComputation(0.25)
	})
}

func TestRecordRecommendationGenerated(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordRecommendationGenerated("disable-bidder")
	})
}

func TestRecordRecommendationTransition(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordRecommendationTransition("implemented")
	})
}

func TestPendingRecommendationsGauge(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(PendingRecommendations)

	PendingRecommendations.Add(3)
	PendingRecommendations.Dec()
	PendingRecommendations.Sub(2)

	assert.Equal(t, before, testutil.ToFloat64(PendingRecommendations))
}
