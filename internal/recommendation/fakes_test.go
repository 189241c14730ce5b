package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

type fakeRecommendationRepo struct {
	recs map[uuid.UUID]*models.YieldRecommendation
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{recs: make(map[uuid.UUID]*models.YieldRecommendation)}
}

func (f *fakeRecommendationRepo) Create(_ context.Context, rec *models.YieldRecommendation) error {
	f.recs[rec.ID] = rec
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
	if _, ok := f.recs[rec.ID]; !ok {
		return models.NewNotFoundError("recommendation", rec.ID.String())
	}
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRecommendationRepo) List(_ context.Context, filter repository.RecommendationFilter) ([]*models.YieldRecommendation, error) {
	var out []*models.YieldRecommendation
	for _, rec := range f.recs {
		if filter.PublisherID != nil && rec.PublisherID != *filter.PublisherID {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && rec.Priority != *filter.Priority {
			continue
		}
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
	configs map[string]*models.BidderConfig
}

func newFakeBidderConfigRepo(configs ...*models.BidderConfig) *fakeBidderConfigRepo {
	repo := &fakeBidderConfigRepo{configs: make(map[string]*models.BidderConfig)}
	for _, cfg := range configs {
		repo.configs[cfg.BidderCode] = cfg
	}
	return repo
}

func (f *fakeBidderConfigRepo) ListPublishers(_ context.Context) ([]uuid.UUID, error) {
	if len(f.configs) == 0 {
		return nil, nil
	}
	return []uuid.UUID{uuid.New()}, nil
}

func (f *fakeBidderConfigRepo) ListByPublisher(_ context.Context, _ uuid.UUID) ([]*models.BidderConfig, error) {
	var out []*models.BidderConfig
	for _, cfg := range f.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (f *fakeBidderConfigRepo) Get(_ context.Context, _ uuid.UUID, bidderCode string) (*models.BidderConfig, error) {
	cfg, ok := f.configs[bidderCode]
	if !ok {
		return nil, models.NewNotFoundError("bidder config", bidderCode)
	}
	return cfg, nil
}

func (f *fakeBidderConfigRepo) SetEnabled(_ context.Context, _ uuid.UUID, bidderCode string, enabled bool) error {
	cfg, ok := f.configs[bidderCode]
	if !ok {
		return models.NewNotFoundError("bidder config", bidderCode)
	}
	cfg.Enabled = enabled
	return nil
}

func (f *fakeBidderConfigRepo) SetTimeout(_ context.Context, _ uuid.UUID, bidderCode string, timeoutMS int) error {
	cfg, ok := f.configs[bidderCode]
	if !ok {
		return models.NewNotFoundError("bidder config", bidderCode)
	}
	cfg.TimeoutMS = timeoutMS
	return nil
}

// fakeEventSource serves canned events, optionally filtered by bidder and window
type fakeEventSource struct {
	events map[models.EventKind][]*models.Event
}

func (f *fakeEventSource) GetByKind(_ context.Context, _ uuid.UUID, kind models.EventKind, start, end time.Time) ([]*models.Event, error) {
	var out []*models.Event
	for _, event := range f.events[kind] {
		if !event.Timestamp.Before(start) && !event.Timestamp.After(end) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeEventSource) GetByKindForBidder(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error) {
	all, err := f.GetByKind(ctx, publisherID, kind, start, end)
	if err != nil {
		return nil, err
	}
	var out []*models.Event
	for _, event := range all {
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

func floatPtr(v float64) *float64 { return &v }
