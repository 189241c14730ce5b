package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind represents the kind of a bid-lifecycle event
type EventKind string

const (
	EventKindAuctionEnd        EventKind = "auction-end"
	EventKindBidResponse       EventKind = "bid-response"
	EventKindBidWon            EventKind = "bid-won"
	EventKindAdRenderSucceeded EventKind = "ad-render-succeeded"
)

// AllEventKinds lists the event kinds consumed by metric computation
var AllEventKinds = []EventKind{
	EventKindAuctionEnd,
	EventKindBidResponse,
	EventKindBidWon,
	EventKindAdRenderSucceeded,
}

// Event represents a single bid-lifecycle occurrence produced by the ingestion
// pipeline. Read-only to this engine.
type Event struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PublisherID uuid.UUID `db:"publisher_id" json:"publisher_id"`
	Kind        EventKind `db:"kind" json:"kind"`
	BidderCode  string    `db:"bidder_code" json:"bidder_code"`
	CPM         *float64  `db:"cpm" json:"cpm"`        // currency units per thousand impressions
	LatencyMS   *float64  `db:"latency_ms" json:"latency_ms"`
	Timeout     bool      `db:"timeout" json:"timeout"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// RevenueContribution returns the revenue attributable to the event (cpm/1000)
func (e *Event) RevenueContribution() float64 {
	if e.CPM == nil {
		return 0
	}
	return *e.CPM / 1000.0
}
