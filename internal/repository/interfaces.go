package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/yield-engine/internal/models"
)

// ExperimentRepository defines the interface for experiment data access
type ExperimentRepository interface {
	// CreateWithArms persists the experiment and its arms atomically
	CreateWithArms(ctx context.Context, experiment *models.Experiment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Experiment, error)
	GetArm(ctx context.Context, armID uuid.UUID) (*models.Arm, error)
	GetArmsByExperimentID(ctx context.Context, experimentID uuid.UUID) ([]*models.Arm, error)
	Update(ctx context.Context, experiment *models.Experiment) error
	UpdateArm(ctx context.Context, arm *models.Arm) error
	// Delete removes the experiment and its arms. Child experiments nested
	// under its arms are left in place.
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.Experiment, error)
	ListByParent(ctx context.Context, parentExperimentID, parentArmID uuid.UUID) ([]*models.Experiment, error)
}

// RecommendationFilter narrows recommendation listings
type RecommendationFilter struct {
	PublisherID *uuid.UUID
	Status      *models.RecommendationStatus
	Priority    *models.RecommendationPriority
}

// RecommendationRepository defines the interface for yield recommendation data access
type RecommendationRepository interface {
	Create(ctx context.Context, rec *models.YieldRecommendation) error
	CreateBatch(ctx context.Context, recs []*models.YieldRecommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.YieldRecommendation, error)
	Update(ctx context.Context, rec *models.YieldRecommendation) error
	List(ctx context.Context, filter RecommendationFilter) ([]*models.YieldRecommendation, error)
	// ExpirePending marks pending recommendations past their expiry as expired
	// and returns how many rows changed. Used by the scheduled sweep only.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// EventRepository defines read access to ingested bid-lifecycle events
type EventRepository interface {
	GetByKind(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time) ([]*models.Event, error)
	GetByKindForBidder(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error)
}

// BidderConfigRepository defines access to the per-publisher bidder configuration store
type BidderConfigRepository interface {
	// ListPublishers returns every publisher with at least one configured bidder
	ListPublishers(ctx context.Context) ([]uuid.UUID, error)
	ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.BidderConfig, error)
	Get(ctx context.Context, publisherID uuid.UUID, bidderCode string) (*models.BidderConfig, error)
	SetEnabled(ctx context.Context, publisherID uuid.UUID, bidderCode string, enabled bool) error
	SetTimeout(ctx context.Context, publisherID uuid.UUID, bidderCode string, timeoutMS int) error
}
