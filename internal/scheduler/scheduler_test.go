package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/recommendation"
	"github.com/yourusername/yield-engine/internal/repository"
)

type fakeRecommendationRepo struct {
	recs    map[uuid.UUID]*models.YieldRecommendation
	created int
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{recs: make(map[uuid.UUID]*models.YieldRecommendation)}
}

func (f *fakeRecommendationRepo) Create(_ context.Context, rec *models.YieldRecommendation) error {
	f.recs[rec.ID] = rec
	f.created++
	return nil
}

func (f *fakeRecommendationRepo) CreateBatch(ctx context.Context, recs []*models.YieldRecommendation) error {
	for _, rec := range recs {
		if err := f.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRecommendationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.YieldRecommendation, error) {
	rec, ok := f.recs[id]
	if !ok {
		return nil, models.NewNotFoundError("recommendation", id.String())
	}
	return rec, nil
}

func (f *fakeRecommendationRepo) Update(_ context.Context, rec *models.YieldRecommendation) error {
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRecommendationRepo) List(_ context.Context, _ repository.RecommendationFilter) ([]*models.YieldRecommendation, error) {
	var out []*models.YieldRecommendation
	for _, rec := range f.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRecommendationRepo) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, rec := range f.recs {
		if rec.Status == models.RecommendationStatusPending && rec.IsExpired(now) {
			rec.Status = models.RecommendationStatusExpired
			n++
		}
	}
	return n, nil
}

type fakeBidderConfigRepo struct {
	publisherID uuid.UUID
	configs     []*models.BidderConfig
}

func (f *fakeBidderConfigRepo) ListPublishers(_ context.Context) ([]uuid.UUID, error) {
	if len(f.configs) == 0 {
		return nil, nil
	}
	return []uuid.UUID{f.publisherID}, nil
}

func (f *fakeBidderConfigRepo) ListByPublisher(_ context.Context, _ uuid.UUID) ([]*models.BidderConfig, error) {
	return f.configs, nil
}

func (f *fakeBidderConfigRepo) Get(_ context.Context, _ uuid.UUID, bidderCode string) (*models.BidderConfig, error) {
	return nil, models.NewNotFoundError("bidder config", bidderCode)
}

func (f *fakeBidderConfigRepo) SetEnabled(context.Context, uuid.UUID, string, bool) error { return nil }
func (f *fakeBidderConfigRepo) SetTimeout(context.Context, uuid.UUID, string, int) error  { return nil }

type fakeEventSource struct {
	events map[models.EventKind][]*models.Event
}

func (f *fakeEventSource) GetByKind(_ context.Context, _ uuid.UUID, kind models.EventKind, _, _ time.Time) ([]*models.Event, error) {
	return f.events[kind], nil
}

func (f *fakeEventSource) GetByKindForBidder(_ context.Context, _ uuid.UUID, kind models.EventKind, _, _ time.Time, bidderCode string) ([]*models.Event, error) {
	var out []*models.Event
	for _, event := range f.events[kind] {
		if event.BidderCode == bidderCode {
			out = append(out, event)
		}
	}
	return out, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testScheduler(recs *fakeRecommendationRepo, bidders *fakeBidderConfigRepo, source *fakeEventSource) *Scheduler {
	logger := quietLogger()
	generator := recommendation.NewGenerator(recs, bidders, source,
		&config.RecommendationConfig{WindowDays: 7, DefaultBidderTimeoutMS: 3000}, logger)
	cfg := &config.SchedulerConfig{
		Enabled:            true,
		GenerationSchedule: "0 3 * * *",
		ExpirySchedule:     "30 3 * * *",
	}
	return New(generator, recs, bidders, cfg, 7, logger)
}

func TestRunExpirySweep(t *testing.T) {
	recs := newFakeRecommendationRepo()
	now := time.Now().UTC()

	stale := &models.YieldRecommendation{
		ID:        uuid.New(),
		Status:    models.RecommendationStatusPending,
		ExpiresAt: now.Add(-time.Hour),
	}
	fresh := &models.YieldRecommendation{
		ID:        uuid.New(),
		Status:    models.RecommendationStatusPending,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, recs.Create(context.Background(), stale))
	require.NoError(t, recs.Create(context.Background(), fresh))

	scheduler := testScheduler(recs, &fakeBidderConfigRepo{}, &fakeEventSource{})
	gaugeBefore := testutil.ToFloat64(metrics.PendingRecommendations)
	scheduler.runExpirySweep(context.Background())

	assert.Equal(t, models.RecommendationStatusExpired, recs.recs[stale.ID].Status)
	assert.Equal(t, models.RecommendationStatusPending, recs.recs[fresh.ID].Status)
	assert.Equal(t, gaugeBefore-1, testutil.ToFloat64(metrics.PendingRecommendations))
}

func TestRunGeneration(t *testing.T) {
	publisherID := uuid.New()
	recs := newFakeRecommendationRepo()
	bidders := &fakeBidderConfigRepo{
		publisherID: publisherID,
		configs:     []*models.BidderConfig{{PublisherID: publisherID, BidderCode: "appnexus", Enabled: true}},
	}

	// 150 recent responses with no wins triggers a disable recommendation
	var responses []*models.Event
	for i := 0; i < 150; i++ {
		responses = append(responses, &models.Event{
			ID:         uuid.New(),
			Kind:       models.EventKindBidResponse,
			BidderCode: "appnexus",
			Timestamp:  time.Now().UTC().Add(-time.Hour),
		})
	}
	source := &fakeEventSource{events: map[models.EventKind][]*models.Event{
		models.EventKindBidResponse: responses,
	}}

	scheduler := testScheduler(recs, bidders, source)
	scheduler.runGeneration(context.Background())

	assert.Equal(t, 1, recs.created)
}

func TestStartDisabled(t *testing.T) {
	recs := newFakeRecommendationRepo()
	scheduler := testScheduler(recs, &fakeBidderConfigRepo{}, &fakeEventSource{})
	scheduler.cfg.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scheduler.Start(ctx))
	assert.Empty(t, scheduler.cron.Entries())
}

func TestStartRegistersJobs(t *testing.T) {
	recs := newFakeRecommendationRepo()
	scheduler := testScheduler(recs, &fakeBidderConfigRepo{}, &fakeEventSource{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	assert.Len(t, scheduler.cron.Entries(), 2)
	cancel()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	recs := newFakeRecommendationRepo()
	scheduler := testScheduler(recs, &fakeBidderConfigRepo{}, &fakeEventSource{})
	scheduler.cfg.GenerationSchedule = "not a schedule"

	err := scheduler.Start(context.Background())
	assert.Error(t, err)
}
