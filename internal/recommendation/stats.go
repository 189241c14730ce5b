package recommendation

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

// Stats is the publisher-level recommendation rollup served to the console
type Stats struct {
	Total                 int                                    `json:"total"`
	ByStatus              map[models.RecommendationStatus]int    `json:"by_status"`
	ByPriority            map[models.RecommendationPriority]int  `json:"by_priority"`
	ByType                map[models.RecommendationType]int      `json:"by_type"`
	EstimatedRevenueTotal float64                                `json:"estimated_revenue_total"`
	ActualRevenueTotal    float64                                `json:"actual_revenue_total"`
}

// ComputeStats aggregates all of a publisher's recommendations into a rollup
func ComputeStats(ctx context.Context, repo repository.RecommendationRepository, publisherID uuid.UUID) (*Stats, error) {
	recs, err := repo.List(ctx, repository.RecommendationFilter{PublisherID: &publisherID})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus:   make(map[models.RecommendationStatus]int),
		ByPriority: make(map[models.RecommendationPriority]int),
		ByType:     make(map[models.RecommendationType]int),
	}

	for _, rec := range recs {
		stats.Total++
		stats.ByStatus[rec.Status]++
		stats.ByPriority[rec.Priority]++
		stats.ByType[rec.Type]++
		if rec.EstimatedImpact != nil {
			stats.EstimatedRevenueTotal += rec.EstimatedImpact.RevenueChange
		}
		if rec.ActualImpact != nil {
			stats.ActualRevenueTotal += rec.ActualImpact.RevenueChange
		}
	}

	return stats, nil
}
