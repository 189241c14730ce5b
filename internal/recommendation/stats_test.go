package recommendation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/models"
)

func TestComputeStats(t *testing.T) {
	publisherID := uuid.New()
	otherPublisher := uuid.New()
	repo := newFakeRecommendationRepo()
	ctx := context.Background()

	implemented := pendingRecommendation(publisherID, models.RecommendedAction{Type: models.RecommendationTypeDisableBidder, BidderCode: "a"})
	implemented.Status = models.RecommendationStatusImplemented
	implemented.EstimatedImpact = &models.ImpactEstimate{RevenueChange: -5}
	implemented.ActualImpact = &models.ImpactEstimate{RevenueChange: -4.5}
	require.NoError(t, repo.Create(ctx, implemented))

	pending := pendingRecommendation(publisherID, models.RecommendedAction{Type: models.RecommendationTypeEnableBidder, BidderCode: "b"})
	pending.Priority = models.PriorityMedium
	pending.EstimatedImpact = &models.ImpactEstimate{RevenueChange: 25}
	require.NoError(t, repo.Create(ctx, pending))

	foreign := pendingRecommendation(otherPublisher, models.RecommendedAction{Type: models.RecommendationTypeDisableBidder, BidderCode: "c"})
	require.NoError(t, repo.Create(ctx, foreign))

	stats, err := ComputeStats(ctx, repo, publisherID)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[models.RecommendationStatusPending])
	assert.Equal(t, 1, stats.ByStatus[models.RecommendationStatusImplemented])
	assert.Equal(t, 1, stats.ByPriority[models.PriorityHigh])
	assert.Equal(t, 1, stats.ByPriority[models.PriorityMedium])
	assert.Equal(t, 1, stats.ByType[models.RecommendationTypeDisableBidder])
	assert.Equal(t, 1, stats.ByType[models.RecommendationTypeEnableBidder])
	assert.InDelta(t, 20, stats.EstimatedRevenueTotal, 1e-9)
	assert.InDelta(t, -4.5, stats.ActualRevenueTotal, 1e-9)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats, err := ComputeStats(context.Background(), newFakeRecommendationRepo(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.ByStatus)
}
