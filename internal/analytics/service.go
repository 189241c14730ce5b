package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

// ExperimentAnalysis is the combined read served to dashboards: per-arm
// metrics plus the arm-vs-control comparison for one experiment window
type ExperimentAnalysis struct {
	ExperimentID uuid.UUID                `json:"experiment_id"`
	WindowStart  time.Time                `json:"window_start"`
	WindowEnd    time.Time                `json:"window_end"`
	Variants     []*models.VariantMetrics `json:"variants"`
	Comparison   *ExperimentComparison    `json:"comparison"`
	ComputedAt   time.Time                `json:"computed_at"`
}

// Service produces experiment analyses, caching results per experiment and window
type Service struct {
	experiments repository.ExperimentRepository
	aggregator  *Aggregator
	cache       *resultCache
	logger      *logrus.Logger
}

// NewService creates the analytics service
func NewService(experiments repository.ExperimentRepository, source eventsource.Source, cfg *config.AnalyticsConfig, logger *logrus.Logger) *Service {
	return &Service{
		experiments: experiments,
		aggregator:  NewAggregator(source, logger),
		cache:       newResultCache(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		logger:      logger,
	}
}

// AnalyzeExperiment computes per-arm metrics over [start, end] and compares
// every variant arm against the control. Results are cached; a repeated call
// for the same experiment and window is served without touching the event
// source.
func (s *Service) AnalyzeExperiment(ctx context.Context, experimentID uuid.UUID, start, end time.Time) (*ExperimentAnalysis, error) {
	if analysis, found := s.cache.get(experimentID, start, end); found {
		return analysis, nil
	}

	experiment, err := s.experiments.GetByID(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	variants, err := s.aggregator.ComputeMetrics(ctx, experiment, start, end)
	if err != nil {
		return nil, err
	}

	analysis := &ExperimentAnalysis{
		ExperimentID: experimentID,
		WindowStart:  start,
		WindowEnd:    end,
		Variants:     variants,
		Comparison:   CompareAll(variants),
		ComputedAt:   time.Now().UTC(),
	}

	s.cache.set(experimentID, start, end, analysis)
	return analysis, nil
}
