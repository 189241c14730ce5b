// Package logger provides recommendation-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RecommendationLogger provides dedicated logging for recommendation operations.
type RecommendationLogger struct {
	*logrus.Entry
}

// NewRecommendationLogger creates a new recommendation logger.
func NewRecommendationLogger(baseLogger *logrus.Logger) *RecommendationLogger {
	return &RecommendationLogger{
		Entry: baseLogger.WithField("component", "recommendation"),
	}
}

// LogGeneration logs a completed recommendation generation run.
func (rl *RecommendationLogger) LogGeneration(publisherID string, windowDays, biddersScanned, recommendationsEmitted int, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"publisher_id":            publisherID,
		"window_days":             windowDays,
		"bidders_scanned":         biddersScanned,
		"recommendations_emitted": recommendationsEmitted,
		"generation_duration_ms":  durationMs,
	}).Info("Recommendation generation completed")
}

// LogTransition logs a recommendation lifecycle transition.
func (rl *RecommendationLogger) LogTransition(recommendationID, fromStatus, toStatus, actor string) {
	rl.WithFields(logrus.Fields{
		"recommendation_id": recommendationID,
		"from_status":       fromStatus,
		"to_status":         toStatus,
		"actor":             actor,
		"event_type":        "transition",
	}).Info("Recommendation status changed")
}

// LogImpactMeasurement logs a computed before/after impact measurement.
func (rl *RecommendationLogger) LogImpactMeasurement(recommendationID string, beforeDaily, afterDaily, revenueChange, percentChange float64) {
	rl.WithFields(logrus.Fields{
		"recommendation_id":    recommendationID,
		"before_daily_revenue": beforeDaily,
		"after_daily_revenue":  afterDaily,
		"revenue_change":       revenueChange,
		"percent_change":       percentChange,
		"event_type":           "impact_measurement",
	}).Info("Recommendation impact measured")
}
