package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/models"
)

// stubExperimentRepo serves a single experiment and counts fetches
type stubExperimentRepo struct {
	experiment *models.Experiment
	fetches    int
}

func (s *stubExperimentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Experiment, error) {
	s.fetches++
	if s.experiment == nil || s.experiment.ID != id {
		return nil, models.NewNotFoundError("experiment", id.String())
	}
	return s.experiment, nil
}

func (s *stubExperimentRepo) CreateWithArms(context.Context, *models.Experiment) error { return nil }
func (s *stubExperimentRepo) GetArm(context.Context, uuid.UUID) (*models.Arm, error) {
	return nil, models.ErrNotFound
}
func (s *stubExperimentRepo) GetArmsByExperimentID(context.Context, uuid.UUID) ([]*models.Arm, error) {
	return nil, nil
}
func (s *stubExperimentRepo) Update(context.Context, *models.Experiment) error  { return nil }
func (s *stubExperimentRepo) UpdateArm(context.Context, *models.Arm) error      { return nil }
func (s *stubExperimentRepo) Delete(context.Context, uuid.UUID) error           { return nil }
func (s *stubExperimentRepo) ListByPublisher(context.Context, uuid.UUID) ([]*models.Experiment, error) {
	return nil, nil
}
func (s *stubExperimentRepo) ListByParent(context.Context, uuid.UUID, uuid.UUID) ([]*models.Experiment, error) {
	return nil, nil
}

func TestAnalyzeExperimentCachesResult(t *testing.T) {
	experiment := twoArmExperiment(50, 50)
	repo := &stubExperimentRepo{experiment: experiment}
	source := &fakeSource{events: map[models.EventKind][]*models.Event{
		models.EventKindAuctionEnd: makeEvents(models.EventKindAuctionEnd, 10, nil),
	}}

	service := NewService(repo, source, &config.AnalyticsConfig{CacheTTLSeconds: 60}, quietLogger())
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	first, err := service.AnalyzeExperiment(ctx, experiment.ID, start, end)
	require.NoError(t, err)
	require.NotNil(t, first.Comparison)
	assert.Equal(t, 1, repo.fetches)

	second, err := service.AnalyzeExperiment(ctx, experiment.ID, start, end)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.fetches)

	// a different window is a different cache entry
	_, err = service.AnalyzeExperiment(ctx, experiment.ID, start, end.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.fetches)
}

func TestAnalyzeExperimentNotFound(t *testing.T) {
	repo := &stubExperimentRepo{}
	source := &fakeSource{events: map[models.EventKind][]*models.Event{}}
	service := NewService(repo, source, &config.AnalyticsConfig{CacheTTLSeconds: 60}, quietLogger())

	_, err := service.AnalyzeExperiment(context.Background(), uuid.New(), time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
