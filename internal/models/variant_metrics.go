package models

import (
	"github.com/google/uuid"
)

// VariantMetrics represents aggregated performance for one arm over an event
// window. Ephemeral: recomputed per query, never persisted.
type VariantMetrics struct {
	ArmID        uuid.UUID `json:"arm_id"`
	ArmName      string    `json:"arm_name"`
	IsControl    bool      `json:"is_control"`
	TrafficShare int       `json:"traffic_share"`

	// Attributed event counts per kind
	Auctions         int `json:"auctions"`
	BidResponses     int `json:"bid_responses"`
	BidsWon          int `json:"bids_won"`
	RendersSucceeded int `json:"renders_succeeded"`

	Revenue           float64 `json:"revenue"`
	AvgCPM            float64 `json:"avg_cpm"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
	TimeoutRate       float64 `json:"timeout_rate"`        // percentage [0,100]
	FillRate          float64 `json:"fill_rate"`           // percentage [0,100]
	WinRate           float64 `json:"win_rate"`            // percentage [0,100]
	BidDensity        float64 `json:"bid_density"`         // responses per auction, a ratio
	RenderSuccessRate float64 `json:"render_success_rate"` // percentage [0,100]
	UniqueBidders     int     `json:"unique_bidders"`
}

// ComparisonMetric represents one tracked metric of a non-control arm
// contrasted against the control arm
type ComparisonMetric struct {
	Metric        string  `json:"metric"`
	ControlValue  float64 `json:"control_value"`
	VariantValue  float64 `json:"variant_value"`
	Difference    float64 `json:"difference"`
	PercentChange float64 `json:"percent_change"`
	// IsSignificant is a fixed heuristic threshold, not a statistical
	// hypothesis test. The thresholds are a behavioral contract.
	IsSignificant bool `json:"is_significant"`
}

// BidderConfig represents one row of the bidder-configuration store
// (an external collaborator; this engine reads it and, on implement, writes it)
type BidderConfig struct {
	PublisherID uuid.UUID `db:"publisher_id" json:"publisher_id"`
	BidderCode  string    `db:"bidder_code" json:"bidder_code"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	TimeoutMS   int       `db:"timeout_ms" json:"timeout_ms"` // 0 means no override
}
