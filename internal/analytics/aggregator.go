// Package analytics computes per-arm performance metrics over ingested bid
// events and contrasts variant arms against the control arm.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
)

// Aggregator computes VariantMetrics for an experiment's arms over a window
// of ingested events
type Aggregator struct {
	source eventsource.Source
	logger *logrus.Logger
}

// NewAggregator creates a new metric aggregator backed by the given event source
func NewAggregator(source eventsource.Source, logger *logrus.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// eventWindow holds one fetch of the publisher's events, split by kind,
// each slice in ingestion order
type eventWindow struct {
	auctions     []*models.Event
	bidResponses []*models.Event
	bidsWon      []*models.Event
	renders      []*models.Event
}

// ComputeMetrics aggregates the publisher's events over [start, end] into one
// VariantMetrics per arm, in the experiment's arm order.
//
// Events are not tagged with an arm id, so attribution is proportional: each
// arm is assigned floor(total * trafficShare / 100) events of each kind, taken
// as a prefix slice of the fetched ordering. This approximation is a tuned
// contract; downstream comparison thresholds depend on it.
func (a *Aggregator) ComputeMetrics(ctx context.Context, experiment *models.Experiment, start, end time.Time) ([]*models.VariantMetrics, error) {
	began := time.Now()

	window, err := a.fetchWindow(ctx, experiment, start, end)
	if err != nil {
		return nil, err
	}

	results := make([]*models.VariantMetrics, 0, len(experiment.Arms))
	for _, arm := range experiment.Arms {
		results = append(results, computeArmMetrics(arm, window))
	}

	metrics.RecordMetricComputation(time.Since(began).Seconds())
	a.logger.WithFields(logrus.Fields{
		"experiment_id": experiment.ID,
		"arms":          len(results),
		"auction_ends":  len(window.auctions),
		"bid_responses": len(window.bidResponses),
	}).Debug("Computed variant metrics")

	return results, nil
}

func (a *Aggregator) fetchWindow(ctx context.Context, experiment *models.Experiment, start, end time.Time) (*eventWindow, error) {
	window := &eventWindow{}
	targets := []struct {
		kind models.EventKind
		dest *[]*models.Event
	}{
		{models.EventKindAuctionEnd, &window.auctions},
		{models.EventKindBidResponse, &window.bidResponses},
		{models.EventKindBidWon, &window.bidsWon},
		{models.EventKindAdRenderSucceeded, &window.renders},
	}

	for _, target := range targets {
		events, err := a.source.GetByKind(ctx, experiment.PublisherID, target.kind, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s events: %w", target.kind, err)
		}
		*target.dest = events
	}
	return window, nil
}

// attribute returns the arm's proportional prefix slice of the given events.
// Shares outside 0-100 can reach this point through a later arm edit; the
// prefix is clamped so a drifted share degrades to all or none of the window.
func attribute(events []*models.Event, trafficShare int) []*models.Event {
	n := len(events) * trafficShare / 100
	if n < 0 {
		n = 0
	}
	if n > len(events) {
		n = len(events)
	}
	return events[:n]
}

func computeArmMetrics(arm *models.Arm, window *eventWindow) *models.VariantMetrics {
	auctions := attribute(window.auctions, arm.TrafficShare)
	responses := attribute(window.bidResponses, arm.TrafficShare)
	wins := attribute(window.bidsWon, arm.TrafficShare)
	renders := attribute(window.renders, arm.TrafficShare)

	vm := &models.VariantMetrics{
		ArmID:            arm.ID,
		ArmName:          arm.Name,
		IsControl:        arm.IsControl,
		TrafficShare:     arm.TrafficShare,
		Auctions:         len(auctions),
		BidResponses:     len(responses),
		BidsWon:          len(wins),
		RendersSucceeded: len(renders),
	}

	var cpmSum float64
	cpmCount := 0
	for _, event := range wins {
		vm.Revenue += event.RevenueContribution()
		if event.CPM != nil {
			cpmSum += *event.CPM
			cpmCount++
		}
	}
	if cpmCount > 0 {
		vm.AvgCPM = cpmSum / float64(cpmCount)
	}

	var latencySum float64
	latencyCount := 0
	timeouts := 0
	bidders := make(map[string]struct{})
	for _, event := range responses {
		if event.LatencyMS != nil {
			latencySum += *event.LatencyMS
			latencyCount++
		}
		if event.Timeout {
			timeouts++
		}
		if event.BidderCode != "" {
			bidders[event.BidderCode] = struct{}{}
		}
	}
	if latencyCount > 0 {
		vm.AvgLatencyMS = latencySum / float64(latencyCount)
	}
	vm.UniqueBidders = len(bidders)

	if vm.BidResponses > 0 {
		vm.TimeoutRate = float64(timeouts) / float64(vm.BidResponses) * 100
		vm.WinRate = float64(vm.BidsWon) / float64(vm.BidResponses) * 100
	}
	if vm.Auctions > 0 {
		vm.FillRate = float64(vm.BidsWon) / float64(vm.Auctions) * 100
		vm.BidDensity = float64(vm.BidResponses) / float64(vm.Auctions)
	}
	if vm.BidsWon > 0 {
		vm.RenderSuccessRate = float64(vm.RendersSucceeded) / float64(vm.BidsWon) * 100
	}

	return vm
}
