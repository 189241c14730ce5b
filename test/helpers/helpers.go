// Package helpers provides shared builders for integration tests.
package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
)

// TruncateTables wipes the engine's tables between test runs
func TruncateTables(t *testing.T, db *database.DB) {
	t.Helper()

	tables := []string{
		"yield_recommendations",
		"bid_events",
		"bidder_configs",
		"experiment_arms",
		"experiments",
	}

	ctx := context.Background()
	for _, table := range tables {
		if _, err := db.GetPool().Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Logf("Warning: failed to truncate table %s: %v", table, err)
		}
	}
}

// NewTestExperiment builds a two-arm experiment with a 50/50 split
func NewTestExperiment(publisherID uuid.UUID) *models.Experiment {
	now := time.Now().UTC()
	experiment := &models.Experiment{
		ID:          uuid.New(),
		PublisherID: publisherID,
		Name:        "test experiment",
		Status:      models.ExperimentStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	experiment.Arms = []*models.Arm{
		{
			ID:           uuid.New(),
			ExperimentID: experiment.ID,
			Name:         "control",
			TrafficShare: 50,
			IsControl:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.New(),
			ExperimentID: experiment.ID,
			Name:         "variant",
			TrafficShare: 50,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
	return experiment
}

// NewTestRecommendation builds a pending disable-bidder recommendation
func NewTestRecommendation(publisherID uuid.UUID, bidderCode string) *models.YieldRecommendation {
	now := time.Now().UTC()
	return &models.YieldRecommendation{
		ID:           uuid.New(),
		PublisherID:  publisherID,
		Type:         models.RecommendationTypeDisableBidder,
		Priority:     models.PriorityHigh,
		Title:        fmt.Sprintf("Disable underperforming bidder %s", bidderCode),
		TargetEntity: bidderCode,
		RecommendedAction: models.RecommendedAction{
			Type:       models.RecommendationTypeDisableBidder,
			BidderCode: bidderCode,
		},
		Status:     models.RecommendationStatusPending,
		Confidence: models.ConfidenceHigh,
		ExpiresAt:  now.AddDate(0, 0, models.RecommendationExpiryDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SeedBidEvents inserts n events of one kind for a publisher and bidder,
// spaced one second apart ending at the given time
func SeedBidEvents(t *testing.T, db *database.DB, publisherID uuid.UUID, kind models.EventKind, bidderCode string, n int, end time.Time, cpm *float64) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := db.GetPool().Exec(ctx,
			`INSERT INTO bid_events (id, publisher_id, kind, bidder_code, cpm, latency_ms, timeout, timestamp)
			 VALUES ($1, $2, $3, $4, $5, NULL, false, $6)`,
			uuid.New(), publisherID, kind, bidderCode, cpm, end.Add(-time.Duration(n-i)*time.Second),
		)
		require.NoError(t, err)
	}
}

// SeedBidderConfig inserts one bidder configuration row
func SeedBidderConfig(t *testing.T, db *database.DB, cfg *models.BidderConfig) {
	t.Helper()

	_, err := db.GetPool().Exec(context.Background(),
		`INSERT INTO bidder_configs (publisher_id, bidder_code, enabled, timeout_ms, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		cfg.PublisherID, cfg.BidderCode, cfg.Enabled, cfg.TimeoutMS,
	)
	require.NoError(t, err)
}
