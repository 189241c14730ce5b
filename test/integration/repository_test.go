//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
	"github.com/yourusername/yield-engine/test/helpers"
)

// TestRepositoryIntegration exercises every repository against a real database
func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	helpers.TruncateTables(t, db)

	t.Run("ExperimentRepository", func(t *testing.T) {
		repo := repository.NewPostgresExperimentRepository(db)
		publisherID := uuid.New()

		experiment := helpers.NewTestExperiment(publisherID)
		timeout := 1200
		experiment.Arms[1].Overrides = &models.ArmOverrides{BidTimeoutMS: &timeout}

		require.NoError(t, repo.CreateWithArms(ctx, experiment))

		retrieved, err := repo.GetByID(ctx, experiment.ID)
		require.NoError(t, err)
		assert.Equal(t, experiment.Name, retrieved.Name)
		require.Len(t, retrieved.Arms, 2)
		require.NotNil(t, retrieved.ControlArm())

		var variant *models.Arm
		for _, arm := range retrieved.Arms {
			if !arm.IsControl {
				variant = arm
			}
		}
		require.NotNil(t, variant)
		require.NotNil(t, variant.Overrides)
		assert.Equal(t, 1200, *variant.Overrides.BidTimeoutMS)

		retrieved.Status = models.ExperimentStatusRunning
		require.NoError(t, repo.Update(ctx, retrieved))
		updated, err := repo.GetByID(ctx, experiment.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExperimentStatusRunning, updated.Status)

		// nested lookup
		child := helpers.NewTestExperiment(publisherID)
		child.ParentExperimentID = &experiment.ID
		child.ParentArmID = &experiment.Arms[0].ID
		child.Level = 1
		require.NoError(t, repo.CreateWithArms(ctx, child))

		nested, err := repo.ListByParent(ctx, experiment.ID, experiment.Arms[0].ID)
		require.NoError(t, err)
		require.Len(t, nested, 1)
		assert.Equal(t, child.ID, nested[0].ID)

		// deleting the parent leaves the child in place
		require.NoError(t, repo.Delete(ctx, experiment.ID))
		_, err = repo.GetByID(ctx, experiment.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		orphan, err := repo.GetByID(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, experiment.ID, *orphan.ParentExperimentID)
	})

	t.Run("RecommendationRepository", func(t *testing.T) {
		repo := repository.NewPostgresRecommendationRepository(db)
		publisherID := uuid.New()

		rec := helpers.NewTestRecommendation(publisherID, "appnexus")
		rec.EstimatedImpact = &models.ImpactEstimate{RevenueChange: -3.5, Confidence: models.ConfidenceHigh}
		require.NoError(t, repo.Create(ctx, rec))

		retrieved, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Title, retrieved.Title)
		require.NotNil(t, retrieved.EstimatedImpact)
		assert.InDelta(t, -3.5, retrieved.EstimatedImpact.RevenueChange, 1e-9)
		assert.Equal(t, "appnexus", retrieved.RecommendedAction.BidderCode)

		status := models.RecommendationStatusPending
		list, err := repo.List(ctx, repository.RecommendationFilter{PublisherID: &publisherID, Status: &status})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		// expiry sweep only touches pending rows past their expiry
		stale := helpers.NewTestRecommendation(publisherID, "rubicon")
		stale.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.Create(ctx, stale))

		expired, err := repo.ExpirePending(ctx, time.Now().UTC())
		require.NoError(t, err)
		assert.EqualValues(t, 1, expired)

		swept, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RecommendationStatusExpired, swept.Status)
		untouched, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RecommendationStatusPending, untouched.Status)
	})

	t.Run("EventRepository", func(t *testing.T) {
		repo := repository.NewPostgresEventRepository(db)
		publisherID := uuid.New()
		end := time.Now().UTC().Truncate(time.Second)

		cpm := 2.5
		helpers.SeedBidEvents(t, db, publisherID, models.EventKindBidWon, "appnexus", 5, end, &cpm)
		helpers.SeedBidEvents(t, db, publisherID, models.EventKindBidWon, "rubicon", 3, end, &cpm)

		events, err := repo.GetByKind(ctx, publisherID, models.EventKindBidWon, end.Add(-time.Hour), end)
		require.NoError(t, err)
		assert.Len(t, events, 8)

		// ingestion order
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp))
		}

		forBidder, err := repo.GetByKindForBidder(ctx, publisherID, models.EventKindBidWon, end.Add(-time.Hour), end, "rubicon")
		require.NoError(t, err)
		assert.Len(t, forBidder, 3)
	})

	t.Run("BidderConfigRepository", func(t *testing.T) {
		repo := repository.NewPostgresBidderConfigRepository(db)
		publisherID := uuid.New()

		helpers.SeedBidderConfig(t, db, &models.BidderConfig{
			PublisherID: publisherID, BidderCode: "appnexus", Enabled: true, TimeoutMS: 1500,
		})

		cfg, err := repo.Get(ctx, publisherID, "appnexus")
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)

		require.NoError(t, repo.SetEnabled(ctx, publisherID, "appnexus", false))
		require.NoError(t, repo.SetTimeout(ctx, publisherID, "appnexus", 1050))

		cfg, err = repo.Get(ctx, publisherID, "appnexus")
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.Equal(t, 1050, cfg.TimeoutMS)

		publishers, err := repo.ListPublishers(ctx)
		require.NoError(t, err)
		assert.Contains(t, publishers, publisherID)

		err = repo.SetEnabled(ctx, publisherID, "missing", true)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
