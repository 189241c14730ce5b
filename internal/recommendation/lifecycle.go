package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/logger"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

// impactLookbackDays is the before-window length used by impact measurement
const impactLookbackDays = 7

// Lifecycle manages recommendation state transitions and impact measurement.
// Transitions assume a single writer per record; concurrent implement and
// dismiss on the same id is last-write-wins.
type Lifecycle struct {
	recommendations repository.RecommendationRepository
	bidders         repository.BidderConfigRepository
	source          eventsource.Source
	logger          *logger.RecommendationLogger
}

// NewLifecycle creates a recommendation lifecycle manager
func NewLifecycle(
	recommendations repository.RecommendationRepository,
	bidders repository.BidderConfigRepository,
	source eventsource.Source,
	baseLogger *logrus.Logger,
) *Lifecycle {
	return &Lifecycle{
		recommendations: recommendations,
		bidders:         bidders,
		source:          source,
		logger:          logger.NewRecommendationLogger(baseLogger),
	}
}

// Implement transitions a pending recommendation to implemented, applies its
// action to the bidder-configuration store, and opens the measurement period.
// Only disable-bidder, enable-bidder and adjust-timeout touch the store; the
// other action types describe manual follow-ups.
func (l *Lifecycle) Implement(ctx context.Context, id uuid.UUID, actor string) (*models.YieldRecommendation, error) {
	rec, err := l.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RecommendationStatusPending {
		return nil, models.NewStateError("implement", string(rec.Status), string(models.RecommendationStatusPending))
	}

	if err := l.applyAction(ctx, rec); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec.Status = models.RecommendationStatusImplemented
	rec.ImplementedAt = &now
	rec.ImplementedBy = actor
	rec.MeasurementPeriod = &models.MeasurementPeriod{Start: now}
	rec.UpdatedAt = now

	if err := l.recommendations.Update(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RecordRecommendationTransition(string(rec.Status))
	metrics.PendingRecommendations.Dec()
	l.logger.LogTransition(rec.ID.String(), string(models.RecommendationStatusPending), string(rec.Status), actor)
	return rec, nil
}

// Dismiss transitions a pending recommendation to dismissed. Terminal.
func (l *Lifecycle) Dismiss(ctx context.Context, id uuid.UUID, actor, reason string) (*models.YieldRecommendation, error) {
	rec, err := l.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RecommendationStatusPending {
		return nil, models.NewStateError("dismiss", string(rec.Status), string(models.RecommendationStatusPending))
	}

	now := time.Now().UTC()
	rec.Status = models.RecommendationStatusDismissed
	rec.DismissedAt = &now
	rec.DismissedBy = actor
	rec.DismissedReason = reason
	rec.UpdatedAt = now

	if err := l.recommendations.Update(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RecordRecommendationTransition(string(rec.Status))
	metrics.PendingRecommendations.Dec()
	l.logger.LogTransition(rec.ID.String(), string(models.RecommendationStatusPending), string(rec.Status), actor)
	return rec, nil
}

// MeasureImpact compares daily revenue rates before and after implementation
// and writes the result as actual impact. The before window is the 7 days up
// to implementation; the after window runs from implementation to now. Both
// windows anchor on the original implementation time; re-measuring after the
// period is closed recomputes from that same anchor and moves the end forward.
func (l *Lifecycle) MeasureImpact(ctx context.Context, id uuid.UUID) (*models.YieldRecommendation, error) {
	rec, err := l.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RecommendationStatusImplemented {
		return nil, models.NewStateError("measure impact", string(rec.Status), string(models.RecommendationStatusImplemented))
	}
	if rec.MeasurementPeriod == nil {
		return nil, models.NewStateError("measure impact", "no measurement period", "open measurement period")
	}

	began := time.Now()
	now := time.Now().UTC()
	// Repeat measurements stay anchored on the original implementation time,
	// never the previous measurement's end.
	start := rec.MeasurementPeriod.Start

	beforeDaily, err := l.dailyRevenue(ctx, rec, start.AddDate(0, 0, -impactLookbackDays), start)
	if err != nil {
		return nil, err
	}
	afterDaily, err := l.dailyRevenue(ctx, rec, start, now)
	if err != nil {
		return nil, err
	}

	revenueChange := afterDaily - beforeDaily
	percentChange := 0.0
	if beforeDaily != 0 {
		percentChange = revenueChange / beforeDaily * 100
	}

	rec.ActualImpact = &models.ImpactEstimate{
		RevenueChange: revenueChange,
		PercentChange: percentChange,
		Confidence:    models.ConfidenceMedium,
	}
	rec.MeasurementPeriod.End = &now
	rec.UpdatedAt = now

	if err := l.recommendations.Update(ctx, rec); err != nil {
		return nil, err
	}

	metrics.ImpactMeasurementDuration.Observe(time.Since(began).Seconds())
	l.logger.LogImpactMeasurement(rec.ID.String(), beforeDaily, afterDaily, revenueChange, percentChange)
	return rec, nil
}

// dailyRevenue sums attributed revenue over [start, end) and normalizes it by
// the window's elapsed days
func (l *Lifecycle) dailyRevenue(ctx context.Context, rec *models.YieldRecommendation, start, end time.Time) (float64, error) {
	var wins []*models.Event
	var err error
	if rec.TargetEntity != "" {
		wins, err = l.source.GetByKindForBidder(ctx, rec.PublisherID, models.EventKindBidWon, start, end, rec.TargetEntity)
	} else {
		wins, err = l.source.GetByKind(ctx, rec.PublisherID, models.EventKindBidWon, start, end)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch bid wins: %w", err)
	}

	var revenue float64
	for _, event := range wins {
		revenue += event.RevenueContribution()
	}

	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return 0, nil
	}
	return revenue / days, nil
}

func (l *Lifecycle) applyAction(ctx context.Context, rec *models.YieldRecommendation) error {
	action := rec.RecommendedAction
	switch action.Type {
	case models.RecommendationTypeDisableBidder:
		return l.bidders.SetEnabled(ctx, rec.PublisherID, action.BidderCode, false)
	case models.RecommendationTypeEnableBidder:
		return l.bidders.SetEnabled(ctx, rec.PublisherID, action.BidderCode, true)
	case models.RecommendationTypeAdjustTimeout:
		if action.TimeoutMS == nil {
			return models.NewValidationError("timeout_ms", "adjust-timeout action carries no timeout value")
		}
		return l.bidders.SetTimeout(ctx, rec.PublisherID, action.BidderCode, *action.TimeoutMS)
	default:
		return nil
	}
}
