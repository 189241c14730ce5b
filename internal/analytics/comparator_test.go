package analytics

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/models"
)

func findMetric(t *testing.T, comparisons []models.ComparisonMetric, name string) models.ComparisonMetric {
	t.Helper()
	for _, comparison := range comparisons {
		if comparison.Metric == name {
			return comparison
		}
	}
	t.Fatalf("metric %q not found", name)
	return models.ComparisonMetric{}
}

func TestCompareECPMAndRevenue(t *testing.T) {
	control := &models.VariantMetrics{ArmID: uuid.New(), IsControl: true, AvgCPM: 2.00, Revenue: 100}
	arm := &models.VariantMetrics{ArmID: uuid.New(), AvgCPM: 2.30, Revenue: 115}

	comparisons := Compare(control, arm)
	require.Len(t, comparisons, 7)

	ecpm := findMetric(t, comparisons, MetricECPM)
	assert.InDelta(t, 0.30, ecpm.Difference, 1e-9)
	assert.InDelta(t, 15, ecpm.PercentChange, 1e-9)
	assert.True(t, ecpm.IsSignificant)

	revenue := findMetric(t, comparisons, MetricRevenue)
	assert.InDelta(t, 15, revenue.Difference, 1e-9)
	assert.InDelta(t, 15, revenue.PercentChange, 1e-9)
	assert.True(t, revenue.IsSignificant)
}

func TestCompareThresholds(t *testing.T) {
	tests := []struct {
		name        string
		metric      string
		control     models.VariantMetrics
		arm         models.VariantMetrics
		significant bool
	}{
		{
			name:        "ecpm within 5 percent",
			metric:      MetricECPM,
			control:     models.VariantMetrics{AvgCPM: 2.00},
			arm:         models.VariantMetrics{AvgCPM: 2.05},
			significant: false,
		},
		{
			name:        "latency within 10 percent",
			metric:      MetricLatency,
			control:     models.VariantMetrics{AvgLatencyMS: 200},
			arm:         models.VariantMetrics{AvgLatencyMS: 219},
			significant: false,
		},
		{
			name:        "latency beyond 10 percent",
			metric:      MetricLatency,
			control:     models.VariantMetrics{AvgLatencyMS: 200},
			arm:         models.VariantMetrics{AvgLatencyMS: 221},
			significant: true,
		},
		{
			name:        "fill rate beyond 2 points",
			metric:      MetricFillRate,
			control:     models.VariantMetrics{FillRate: 40},
			arm:         models.VariantMetrics{FillRate: 42.5},
			significant: true,
		},
		{
			name:        "timeout rate beyond 1 point",
			metric:      MetricTimeoutRate,
			control:     models.VariantMetrics{TimeoutRate: 5},
			arm:         models.VariantMetrics{TimeoutRate: 6.5},
			significant: true,
		},
		{
			name:        "bid density within 10 percent",
			metric:      MetricBidDensity,
			control:     models.VariantMetrics{BidDensity: 3.0},
			arm:         models.VariantMetrics{BidDensity: 3.2},
			significant: false,
		},
		{
			name:        "render success beyond 2 points",
			metric:      MetricRenderSuccessRate,
			control:     models.VariantMetrics{RenderSuccessRate: 90},
			arm:         models.VariantMetrics{RenderSuccessRate: 87},
			significant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparison := findMetric(t, Compare(&tt.control, &tt.arm), tt.metric)
			assert.Equal(t, tt.significant, comparison.IsSignificant)
		})
	}
}

func TestCompareZeroControlValue(t *testing.T) {
	control := &models.VariantMetrics{Revenue: 0}
	arm := &models.VariantMetrics{Revenue: 10}

	revenue := findMetric(t, Compare(control, arm), MetricRevenue)
	assert.InDelta(t, 10, revenue.Difference, 1e-9)
	assert.Zero(t, revenue.PercentChange)
	assert.True(t, revenue.IsSignificant) // |10| > 0 * 0.05
}

// Swapping control and arm flips the sign of the difference but not the
// magnitude of the percent change, since the denominator changes with the
// control. Both directions are fixed here.
func TestCompareAntisymmetry(t *testing.T) {
	a := &models.VariantMetrics{AvgCPM: 2.00}
	b := &models.VariantMetrics{AvgCPM: 2.30}

	forward := findMetric(t, Compare(a, b), MetricECPM)
	reverse := findMetric(t, Compare(b, a), MetricECPM)

	assert.InDelta(t, 0.30, forward.Difference, 1e-9)
	assert.InDelta(t, -0.30, reverse.Difference, 1e-9)
	assert.InDelta(t, 15, forward.PercentChange, 1e-9)
	assert.InDelta(t, -13.043478260869565, reverse.PercentChange, 1e-9)
	assert.True(t, forward.IsSignificant)
	assert.True(t, reverse.IsSignificant)
}

func TestCompareAll(t *testing.T) {
	controlID := uuid.New()
	variantAID := uuid.New()
	variantBID := uuid.New()
	variants := []*models.VariantMetrics{
		{ArmID: controlID, ArmName: "control", IsControl: true, AvgCPM: 2.00, Revenue: 100},
		{ArmID: variantAID, ArmName: "a", AvgCPM: 2.30, Revenue: 115},
		{ArmID: variantBID, ArmName: "b", AvgCPM: 1.99, Revenue: 99},
	}

	result := CompareAll(variants)
	require.NotNil(t, result)
	assert.Len(t, result.Comparisons, 2)
	assert.Contains(t, result.Comparisons, variantAID)
	assert.Contains(t, result.Comparisons, variantBID)
	assert.True(t, result.HasSignificantResults)
	assert.Equal(t, variantAID, result.BestPerformingVariant)
}

func TestCompareAllNoControl(t *testing.T) {
	variants := []*models.VariantMetrics{
		{ArmID: uuid.New(), Revenue: 10},
	}
	assert.Nil(t, CompareAll(variants))
}

func TestCompareAllControlBestPerforming(t *testing.T) {
	controlID := uuid.New()
	variants := []*models.VariantMetrics{
		{ArmID: controlID, IsControl: true, Revenue: 120},
		{ArmID: uuid.New(), Revenue: 100},
	}

	result := CompareAll(variants)
	require.NotNil(t, result)
	assert.Equal(t, controlID, result.BestPerformingVariant)
}
