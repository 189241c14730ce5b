// Package recommendation generates yield recommendations from bid events and
// manages their lifecycle.
package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/logger"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

// Generation thresholds. These trigger levels are a tuned contract with the
// console UI; adjust them in lockstep with consumer expectations.
const (
	disableRevenueBelow     = 1.0
	disableMinResponses     = 100
	timeoutRateAbove        = 15.0
	timeoutCriticalRate     = 30.0
	timeoutMinResponses     = 50
	timeoutReductionFactor  = 0.7
	timeoutFloorMS          = 500
	abTestRevenueAbove      = 50.0
	abTestFillRateBelow     = 50.0
	reenableRevenueAbove    = 20.0
	floorMinWonEvents       = 100
	floorMedianFactor       = "0.5"
	floorMinSuggested       = "0.10"
	timeoutSavingsFraction  = 0.10
	abTestUpliftFraction    = 0.15
)

// Generator scans a publisher's recent events per configured bidder and emits
// pending recommendations
type Generator struct {
	recommendations repository.RecommendationRepository
	bidders         repository.BidderConfigRepository
	source          eventsource.Source
	cfg             *config.RecommendationConfig
	logger          *logger.RecommendationLogger
}

// NewGenerator creates a recommendation generator
func NewGenerator(
	recommendations repository.RecommendationRepository,
	bidders repository.BidderConfigRepository,
	source eventsource.Source,
	cfg *config.RecommendationConfig,
	baseLogger *logrus.Logger,
) *Generator {
	return &Generator{
		recommendations: recommendations,
		bidders:         bidders,
		source:          source,
		cfg:             cfg,
		logger:          logger.NewRecommendationLogger(baseLogger),
	}
}

// bidderStats holds the per-bidder counters the rules evaluate. Persisted
// verbatim as the recommendation's data snapshot.
type bidderStats struct {
	BidderCode     string  `json:"bidder_code"`
	Enabled        bool    `json:"enabled"`
	CurrentTimeout int     `json:"current_timeout_ms"`
	BidResponses   int     `json:"bid_responses"`
	BidsWon        int     `json:"bids_won"`
	Timeouts       int     `json:"timeouts"`
	TimeoutRate    float64 `json:"timeout_rate"`
	FillRate       float64 `json:"fill_rate"`
	AvgCPM         float64 `json:"avg_cpm"`
	Revenue        float64 `json:"revenue"`
	WindowDays     int     `json:"window_days"`
}

// Generate evaluates every configured bidder over the trailing window and
// persists the triggered recommendations as pending. Rules are independent:
// one bidder can trigger several. Output is sorted by priority; ties keep
// generation order.
func (g *Generator) Generate(ctx context.Context, publisherID uuid.UUID, windowDays int) ([]*models.YieldRecommendation, error) {
	began := time.Now()
	if windowDays <= 0 {
		windowDays = g.cfg.WindowDays
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -windowDays)

	configs, err := g.bidders.ListByPublisher(ctx, publisherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bidder configs: %w", err)
	}

	var recs []*models.YieldRecommendation
	for _, bidder := range configs {
		stats, err := g.collectBidderStats(ctx, publisherID, bidder, start, now, windowDays)
		if err != nil {
			return nil, err
		}
		recs = append(recs, g.applyBidderRules(publisherID, stats, now)...)
	}

	floorRec, err := g.floorPriceRule(ctx, publisherID, start, now)
	if err != nil {
		return nil, err
	}
	if floorRec != nil {
		recs = append(recs, floorRec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})

	if len(recs) > 0 {
		if err := g.recommendations.CreateBatch(ctx, recs); err != nil {
			return nil, fmt.Errorf("failed to persist recommendations: %w", err)
		}
		metrics.PendingRecommendations.Add(float64(len(recs)))
	}

	elapsed := time.Since(began)
	metrics.RecommendationGenerationDuration.Observe(elapsed.Seconds())
	for _, rec := range recs {
		metrics.RecordRecommendationGenerated(string(rec.Type))
	}
	g.logger.LogGeneration(publisherID.String(), windowDays, len(configs), len(recs), float64(elapsed.Milliseconds()))

	return recs, nil
}

func (g *Generator) collectBidderStats(ctx context.Context, publisherID uuid.UUID, bidder *models.BidderConfig, start, end time.Time, windowDays int) (*bidderStats, error) {
	responses, err := g.source.GetByKindForBidder(ctx, publisherID, models.EventKindBidResponse, start, end, bidder.BidderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bid responses for %s: %w", bidder.BidderCode, err)
	}
	wins, err := g.source.GetByKindForBidder(ctx, publisherID, models.EventKindBidWon, start, end, bidder.BidderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bid wins for %s: %w", bidder.BidderCode, err)
	}

	stats := &bidderStats{
		BidderCode:     bidder.BidderCode,
		Enabled:        bidder.Enabled,
		CurrentTimeout: bidder.TimeoutMS,
		BidResponses:   len(responses),
		BidsWon:        len(wins),
		WindowDays:     windowDays,
	}
	if stats.CurrentTimeout == 0 {
		stats.CurrentTimeout = g.cfg.DefaultBidderTimeoutMS
	}

	for _, event := range responses {
		if event.Timeout {
			stats.Timeouts++
		}
	}

	var cpmSum float64
	cpmCount := 0
	for _, event := range wins {
		stats.Revenue += event.RevenueContribution()
		if event.CPM != nil {
			cpmSum += *event.CPM
			cpmCount++
		}
	}
	if cpmCount > 0 {
		stats.AvgCPM = cpmSum / float64(cpmCount)
	}
	if stats.BidResponses > 0 {
		stats.TimeoutRate = float64(stats.Timeouts) / float64(stats.BidResponses) * 100
		stats.FillRate = float64(stats.BidsWon) / float64(stats.BidResponses) * 100
	}

	return stats, nil
}

func (g *Generator) applyBidderRules(publisherID uuid.UUID, stats *bidderStats, now time.Time) []*models.YieldRecommendation {
	var recs []*models.YieldRecommendation

	if stats.Enabled && stats.Revenue < disableRevenueBelow && stats.BidResponses > disableMinResponses {
		priority := models.PriorityMedium
		if stats.Revenue == 0 {
			priority = models.PriorityHigh
		}
		recs = append(recs, newRecommendation(publisherID, stats, now, &models.YieldRecommendation{
			Type:     models.RecommendationTypeDisableBidder,
			Priority: priority,
			Title:    fmt.Sprintf("Disable underperforming bidder %s", stats.BidderCode),
			Description: fmt.Sprintf("%s produced %.2f revenue from %d bid responses over the last %d days.",
				stats.BidderCode, stats.Revenue, stats.BidResponses, stats.WindowDays),
			EstimatedImpact: &models.ImpactEstimate{
				RevenueChange: -stats.Revenue,
				Confidence:    models.ConfidenceHigh,
			},
			Confidence: models.ConfidenceHigh,
			RecommendedAction: models.RecommendedAction{
				Type:       models.RecommendationTypeDisableBidder,
				BidderCode: stats.BidderCode,
			},
		}))
	}

	if stats.Enabled && stats.TimeoutRate > timeoutRateAbove && stats.BidResponses > timeoutMinResponses {
		newTimeout := int(math.Floor(float64(stats.CurrentTimeout) * timeoutReductionFactor))
		if newTimeout < timeoutFloorMS {
			newTimeout = timeoutFloorMS
		}
		priority := models.PriorityMedium
		if stats.TimeoutRate > timeoutCriticalRate {
			priority = models.PriorityHigh
		}
		recs = append(recs, newRecommendation(publisherID, stats, now, &models.YieldRecommendation{
			Type:     models.RecommendationTypeAdjustTimeout,
			Priority: priority,
			Title:    fmt.Sprintf("Reduce timeout for %s", stats.BidderCode),
			Description: fmt.Sprintf("%s times out on %.1f%% of bid requests. Lowering its timeout from %dms to %dms should reduce page latency.",
				stats.BidderCode, stats.TimeoutRate, stats.CurrentTimeout, newTimeout),
			EstimatedImpact: &models.ImpactEstimate{
				RevenueChange: -stats.Revenue * timeoutSavingsFraction,
				Confidence:    models.ConfidenceMedium,
			},
			Confidence: models.ConfidenceMedium,
			RecommendedAction: models.RecommendedAction{
				Type:       models.RecommendationTypeAdjustTimeout,
				BidderCode: stats.BidderCode,
				TimeoutMS:  &newTimeout,
			},
		}))
	}

	if stats.Enabled && stats.Revenue > abTestRevenueAbove && stats.FillRate < abTestFillRateBelow {
		recs = append(recs, newRecommendation(publisherID, stats, now, &models.YieldRecommendation{
			Type:     models.RecommendationTypeRunABTest,
			Priority: models.PriorityLow,
			Title:    fmt.Sprintf("Test timeout settings for %s", stats.BidderCode),
			Description: fmt.Sprintf("%s earns well (%.2f revenue) but fills only %.1f%% of its responses. A timeout experiment could find a better operating point.",
				stats.BidderCode, stats.Revenue, stats.FillRate),
			EstimatedImpact: &models.ImpactEstimate{
				RevenueChange: stats.Revenue * abTestUpliftFraction,
				Confidence:    models.ConfidenceLow,
			},
			Confidence: models.ConfidenceLow,
			RecommendedAction: models.RecommendedAction{
				Type:       models.RecommendationTypeRunABTest,
				BidderCode: stats.BidderCode,
				ABTest: &models.ABTestProposal{
					Name:         fmt.Sprintf("%s timeout sweep", stats.BidderCode),
					TimeoutsMS:   []int{1000, 1500, 2000},
					TrafficSplit: []int{33, 33, 34},
				},
			},
		}))
	}

	if !stats.Enabled && stats.Revenue > reenableRevenueAbove {
		recs = append(recs, newRecommendation(publisherID, stats, now, &models.YieldRecommendation{
			Type:     models.RecommendationTypeEnableBidder,
			Priority: models.PriorityMedium,
			Title:    fmt.Sprintf("Re-enable bidder %s", stats.BidderCode),
			Description: fmt.Sprintf("%s is disabled but produced %.2f revenue over the window while still receiving traffic.",
				stats.BidderCode, stats.Revenue),
			EstimatedImpact: &models.ImpactEstimate{
				RevenueChange: stats.Revenue,
				Confidence:    models.ConfidenceMedium,
			},
			Confidence: models.ConfidenceMedium,
			RecommendedAction: models.RecommendedAction{
				Type:       models.RecommendationTypeEnableBidder,
				BidderCode: stats.BidderCode,
			},
		}))
	}

	return recs
}

// floorPriceRule suggests a publisher-wide price floor at half the median
// winning CPM. Decimal arithmetic keeps the suggested floor at exactly two
// places with no binary-float drift.
func (g *Generator) floorPriceRule(ctx context.Context, publisherID uuid.UUID, start, now time.Time) (*models.YieldRecommendation, error) {
	wins, err := g.source.GetByKind(ctx, publisherID, models.EventKindBidWon, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bid wins: %w", err)
	}
	if len(wins) < floorMinWonEvents {
		return nil, nil
	}

	var cpms []float64
	for _, event := range wins {
		if event.CPM != nil && *event.CPM > 0 {
			cpms = append(cpms, *event.CPM)
		}
	}
	if len(cpms) == 0 {
		return nil, nil
	}
	sort.Float64s(cpms)
	median := cpms[len(cpms)/2]
	if len(cpms)%2 == 0 {
		median = (cpms[len(cpms)/2-1] + cpms[len(cpms)/2]) / 2
	}

	suggested := decimal.NewFromFloat(median).
		Mul(decimal.RequireFromString(floorMedianFactor)).
		Round(2)
	if suggested.LessThanOrEqual(decimal.RequireFromString(floorMinSuggested)) {
		return nil, nil
	}
	floorCPM, _ := suggested.Float64()

	snapshot, _ := json.Marshal(map[string]any{
		"bid_won_events": len(wins),
		"positive_cpms":  len(cpms),
		"median_cpm":     median,
		"suggested_cpm":  floorCPM,
	})

	expiry := now.AddDate(0, 0, models.RecommendationExpiryDays)
	return &models.YieldRecommendation{
		ID:           uuid.New(),
		PublisherID:  publisherID,
		Type:         models.RecommendationTypeAdjustFloorPrice,
		Priority:     models.PriorityLow,
		Title:        "Set a publisher-wide price floor",
		Description:  fmt.Sprintf("Median winning CPM is %.2f. A floor of %s could lift clearing prices.", median, suggested.StringFixed(2)),
		DataSnapshot: snapshot,
		EstimatedImpact: &models.ImpactEstimate{
			Confidence: models.ConfidenceLow,
		},
		Confidence: models.ConfidenceLow,
		RecommendedAction: models.RecommendedAction{
			Type:     models.RecommendationTypeAdjustFloorPrice,
			FloorCPM: &floorCPM,
		},
		Status:    models.RecommendationStatusPending,
		ExpiresAt: expiry,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// newRecommendation fills the fields shared by every per-bidder rule
func newRecommendation(publisherID uuid.UUID, stats *bidderStats, now time.Time, rec *models.YieldRecommendation) *models.YieldRecommendation {
	snapshot, _ := json.Marshal(stats)

	rec.ID = uuid.New()
	rec.PublisherID = publisherID
	rec.TargetEntity = stats.BidderCode
	rec.DataSnapshot = snapshot
	rec.Status = models.RecommendationStatusPending
	rec.ExpiresAt = now.AddDate(0, 0, models.RecommendationExpiryDays)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec
}
