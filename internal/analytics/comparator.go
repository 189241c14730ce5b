package analytics

import (
	"math"

	"github.com/google/uuid"

	"github.com/yourusername/yield-engine/internal/models"
)

// Tracked metric names as exposed in comparison output
const (
	MetricECPM              = "eCPM"
	MetricRevenue           = "Revenue"
	MetricLatency           = "Latency (ms)"
	MetricFillRate          = "Fill Rate (%)"
	MetricTimeoutRate       = "Timeout Rate (%)"
	MetricBidDensity        = "Bid Density"
	MetricRenderSuccessRate = "Render Success Rate (%)"
)

// comparisonSpec binds a tracked metric to its accessor and significance rule
type comparisonSpec struct {
	name        string
	value       func(*models.VariantMetrics) float64
	significant func(difference, controlValue float64) bool
}

func relativeThreshold(fraction float64) func(float64, float64) bool {
	return func(difference, controlValue float64) bool {
		return math.Abs(difference) > controlValue*fraction
	}
}

func absoluteThreshold(points float64) func(float64, float64) bool {
	return func(difference, _ float64) bool {
		return math.Abs(difference) > points
	}
}

// The thresholds are fixed heuristics, not statistical tests. They are a
// behavioral contract tuned against proportional attribution; changing them
// changes what downstream consumers surface.
var comparisonSpecs = []comparisonSpec{
	{MetricECPM, func(v *models.VariantMetrics) float64 { return v.AvgCPM }, relativeThreshold(0.05)},
	{MetricRevenue, func(v *models.VariantMetrics) float64 { return v.Revenue }, relativeThreshold(0.05)},
	{MetricLatency, func(v *models.VariantMetrics) float64 { return v.AvgLatencyMS }, relativeThreshold(0.10)},
	{MetricFillRate, func(v *models.VariantMetrics) float64 { return v.FillRate }, absoluteThreshold(2)},
	{MetricTimeoutRate, func(v *models.VariantMetrics) float64 { return v.TimeoutRate }, absoluteThreshold(1)},
	{MetricBidDensity, func(v *models.VariantMetrics) float64 { return v.BidDensity }, relativeThreshold(0.10)},
	{MetricRenderSuccessRate, func(v *models.VariantMetrics) float64 { return v.RenderSuccessRate }, absoluteThreshold(2)},
}

// Compare contrasts one variant arm against the control arm, producing one
// ComparisonMetric per tracked metric
func Compare(control, arm *models.VariantMetrics) []models.ComparisonMetric {
	out := make([]models.ComparisonMetric, 0, len(comparisonSpecs))
	for _, spec := range comparisonSpecs {
		controlValue := spec.value(control)
		variantValue := spec.value(arm)
		difference := variantValue - controlValue

		percentChange := 0.0
		if controlValue != 0 {
			percentChange = difference / controlValue * 100
		}

		out = append(out, models.ComparisonMetric{
			Metric:        spec.name,
			ControlValue:  controlValue,
			VariantValue:  variantValue,
			Difference:    difference,
			PercentChange: percentChange,
			IsSignificant: spec.significant(difference, controlValue),
		})
	}
	return out
}

// ExperimentComparison holds the full arm-vs-control comparison for one
// experiment window
type ExperimentComparison struct {
	// Comparisons is keyed by non-control arm id
	Comparisons           map[uuid.UUID][]models.ComparisonMetric `json:"comparisons"`
	HasSignificantResults bool                                    `json:"has_significant_results"`
	// BestPerformingVariant is the arm, control included, with the highest revenue
	BestPerformingVariant uuid.UUID `json:"best_performing_variant"`
}

// CompareAll runs Compare for every non-control arm against the control arm.
// Returns nil if the variant set has no control arm.
func CompareAll(variants []*models.VariantMetrics) *ExperimentComparison {
	var control *models.VariantMetrics
	for _, variant := range variants {
		if variant.IsControl {
			control = variant
			break
		}
	}
	if control == nil {
		return nil
	}

	result := &ExperimentComparison{
		Comparisons: make(map[uuid.UUID][]models.ComparisonMetric),
	}

	best := control
	for _, variant := range variants {
		if variant.Revenue > best.Revenue {
			best = variant
		}
		if variant.IsControl {
			continue
		}
		comparisons := Compare(control, variant)
		result.Comparisons[variant.ArmID] = comparisons
		for _, comparison := range comparisons {
			if comparison.IsSignificant {
				result.HasSignificantResults = true
			}
		}
	}
	result.BestPerformingVariant = best.ArmID

	return result
}
