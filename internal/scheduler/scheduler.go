// Package scheduler runs the periodic jobs of the engine: nightly
// recommendation generation and the pending-recommendation expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/recommendation"
	"github.com/yourusername/yield-engine/internal/repository"
)

// Scheduler owns the cron runner and its registered jobs
type Scheduler struct {
	cron            *cron.Cron
	generator       *recommendation.Generator
	recommendations repository.RecommendationRepository
	bidders         repository.BidderConfigRepository
	cfg             *config.SchedulerConfig
	windowDays      int
	logger          *logrus.Logger
}

// New creates a scheduler with the generation and expiry jobs unregistered
func New(
	generator *recommendation.Generator,
	recommendations repository.RecommendationRepository,
	bidders repository.BidderConfigRepository,
	cfg *config.SchedulerConfig,
	windowDays int,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		generator:       generator,
		recommendations: recommendations,
		bidders:         bidders,
		cfg:             cfg,
		windowDays:      windowDays,
		logger:          logger,
	}
}

// Start registers the cron jobs and begins running them. Stops when the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.GenerationSchedule, func() { s.runGeneration(ctx) }); err != nil {
		return fmt.Errorf("failed to register generation job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ExpirySchedule, func() { s.runExpirySweep(ctx) }); err != nil {
		return fmt.Errorf("failed to register expiry job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"generation_schedule": s.cfg.GenerationSchedule,
		"expiry_schedule":     s.cfg.ExpirySchedule,
	}).Info("Scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the cron runner, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}

// runGeneration generates recommendations for every publisher with configured
// bidders. One publisher failing does not stop the run.
func (s *Scheduler) runGeneration(ctx context.Context) {
	publishers, err := s.bidders.ListPublishers(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Generation run failed to list publishers")
		return
	}

	for _, publisherID := range publishers {
		if _, err := s.generator.Generate(ctx, publisherID, s.windowDays); err != nil {
			s.logger.WithError(err).WithField("publisher_id", publisherID).
				Error("Scheduled generation failed for publisher")
		}
	}
}

// runExpirySweep expires pending recommendations past their expiry timestamp
func (s *Scheduler) runExpirySweep(ctx context.Context) {
	expired, err := s.recommendations.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return
	}
	if expired > 0 {
		metrics.RecommendationsExpiredTotal.Add(float64(expired))
		metrics.PendingRecommendations.Sub(float64(expired))
		s.logger.WithField("expired", expired).Info("Expired stale recommendations")
	}
}
