package repository

import (
	"fmt"

	"github.com/yourusername/yield-engine/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Experiment     ExperimentRepository
	Recommendation RecommendationRepository
	Event          EventRepository
	BidderConfig   BidderConfigRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Experiment:     NewPostgresExperimentRepository(db),
		Recommendation: NewPostgresRecommendationRepository(db),
		Event:          NewPostgresEventRepository(db),
		BidderConfig:   NewPostgresBidderConfigRepository(db),
	}, nil
}
