package models

import (
	"time"

	"github.com/google/uuid"
)

// ExperimentStatus represents the status of an experiment
type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusPaused    ExperimentStatus = "paused"
	ExperimentStatusCompleted ExperimentStatus = "completed"
)

// Experiment represents a traffic-split optimization trial scoped to one publisher.
// Experiments can be nested under an arm of a parent experiment; Level is 0 for
// top-level experiments and parent.Level+1 otherwise.
type Experiment struct {
	ID                 uuid.UUID        `db:"id" json:"id" validate:"required,uuid4"`
	PublisherID        uuid.UUID        `db:"publisher_id" json:"publisher_id" validate:"required,uuid4"`
	Name               string           `db:"name" json:"name" validate:"required,min=1,max=255"`
	Description        string           `db:"description" json:"description"`
	Status             ExperimentStatus `db:"status" json:"status" validate:"required,oneof=draft running paused completed"`
	StartDate          *time.Time       `db:"start_date" json:"start_date"`
	EndDate            *time.Time       `db:"end_date" json:"end_date"`
	ParentExperimentID *uuid.UUID       `db:"parent_experiment_id" json:"parent_experiment_id"`
	ParentArmID        *uuid.UUID       `db:"parent_arm_id" json:"parent_arm_id"`
	Level              int              `db:"level" json:"level" validate:"gte=0"`
	Arms               []*Arm           `db:"-" json:"arms"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// IsNested reports whether the experiment is nested under a parent experiment
func (e *Experiment) IsNested() bool {
	return e.ParentExperimentID != nil
}

// ControlArm returns the arm marked as control, or nil if none is attached
func (e *Experiment) ControlArm() *Arm {
	for _, arm := range e.Arms {
		if arm.IsControl {
			return arm
		}
	}
	return nil
}

// Arm represents one traffic-split configuration bucket within an experiment
type Arm struct {
	ID           uuid.UUID     `db:"id" json:"id" validate:"required,uuid4"`
	ExperimentID uuid.UUID     `db:"experiment_id" json:"experiment_id" validate:"required,uuid4"`
	Name         string        `db:"name" json:"name" validate:"required,min=1,max=255"`
	TrafficShare int           `db:"traffic_share" json:"traffic_share" validate:"gte=0,lte=100"`
	IsControl    bool          `db:"is_control" json:"is_control"`
	Overrides    *ArmOverrides `db:"overrides" json:"overrides"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ArmOverrides holds the bidding configuration overrides an arm applies on top
// of the publisher's base wrapper configuration
type ArmOverrides struct {
	BidTimeoutMS      *int              `json:"bid_timeout_ms,omitempty"`
	PriceGranularity  string            `json:"price_granularity,omitempty"`
	SendAllBids       *bool             `json:"send_all_bids,omitempty"`
	BidderSequence    []string          `json:"bidder_sequence,omitempty"`
	PriceFloor        *PriceFloorConfig `json:"price_floor,omitempty"`
	BidderParams      map[string]any    `json:"bidder_params,omitempty"`
	AdditionalBidders []ArmBidder       `json:"additional_bidders,omitempty"`
}

// PriceFloorConfig describes a price-floor override for an arm
type PriceFloorConfig struct {
	Enabled  bool    `json:"enabled"`
	FloorCPM float64 `json:"floor_cpm"`
	Currency string  `json:"currency,omitempty"`
}

// ArmBidder describes an additional bidder enabled only inside one arm
type ArmBidder struct {
	BidderCode string         `json:"bidder_code"`
	Enabled    bool           `json:"enabled"`
	Params     map[string]any `json:"params,omitempty"`
	TimeoutMS  *int           `json:"timeout_ms,omitempty"`
	Priority   *int           `json:"priority,omitempty"`
}
