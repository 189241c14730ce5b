package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecommendationType represents the type of a yield recommendation
type RecommendationType string

const (
	RecommendationTypeDisableBidder    RecommendationType = "disable-bidder"
	RecommendationTypeEnableBidder     RecommendationType = "enable-bidder"
	RecommendationTypeAdjustTimeout    RecommendationType = "adjust-timeout"
	RecommendationTypeRunABTest        RecommendationType = "run-ab-test"
	RecommendationTypeAdjustFloorPrice RecommendationType = "adjust-floor-price"
)

// RecommendationPriority represents how urgently a recommendation should be acted on
type RecommendationPriority string

const (
	PriorityCritical RecommendationPriority = "critical"
	PriorityHigh     RecommendationPriority = "high"
	PriorityMedium   RecommendationPriority = "medium"
	PriorityLow      RecommendationPriority = "low"
)

// Rank returns the sort rank of the priority, lower is more urgent
func (p RecommendationPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// RecommendationStatus represents the lifecycle status of a recommendation
type RecommendationStatus string

const (
	RecommendationStatusPending     RecommendationStatus = "pending"
	RecommendationStatusImplemented RecommendationStatus = "implemented"
	RecommendationStatusDismissed   RecommendationStatus = "dismissed"
	RecommendationStatusExpired     RecommendationStatus = "expired"
)

// ConfidenceLevel represents how confident the generator is in a recommendation
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ImpactEstimate represents an estimated or measured revenue impact
type ImpactEstimate struct {
	RevenueChange float64         `json:"revenue_change"`
	PercentChange float64         `json:"percent_change"`
	Confidence    ConfidenceLevel `json:"confidence"`
}

// MeasurementPeriod represents the window over which actual impact is measured.
// End is nil while measurement is still open.
type MeasurementPeriod struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

// ABTestProposal describes an experiment the run-ab-test action suggests creating
type ABTestProposal struct {
	Name         string `json:"name"`
	TimeoutsMS   []int  `json:"timeouts_ms"`
	TrafficSplit []int  `json:"traffic_split"`
}

// RecommendedAction is the machine-executable instruction attached to a
// recommendation. Only disable-bidder, enable-bidder and adjust-timeout mutate
// the bidder-configuration store on implement; the rest describe manual follow-ups.
type RecommendedAction struct {
	Type       RecommendationType `json:"type"`
	BidderCode string             `json:"bidder_code,omitempty"`
	TimeoutMS  *int               `json:"timeout_ms,omitempty"`
	FloorCPM   *float64           `json:"floor_cpm,omitempty"`
	ABTest     *ABTestProposal    `json:"ab_test,omitempty"`
}

// RecommendationExpiryDays is how long a pending recommendation stays actionable
const RecommendationExpiryDays = 30

// YieldRecommendation represents a persisted, user-actionable suggestion to
// change bidding configuration
type YieldRecommendation struct {
	ID                uuid.UUID              `db:"id" json:"id" validate:"required,uuid4"`
	PublisherID       uuid.UUID              `db:"publisher_id" json:"publisher_id" validate:"required,uuid4"`
	Type              RecommendationType     `db:"type" json:"type" validate:"required"`
	Priority          RecommendationPriority `db:"priority" json:"priority" validate:"required,oneof=critical high medium low"`
	Title             string                 `db:"title" json:"title" validate:"required"`
	Description       string                 `db:"description" json:"description"`
	DataSnapshot      json.RawMessage        `db:"data_snapshot" json:"data_snapshot"`
	EstimatedImpact   *ImpactEstimate        `db:"estimated_impact" json:"estimated_impact"`
	TargetEntity      string                 `db:"target_entity" json:"target_entity"` // usually a bidder code
	RecommendedAction RecommendedAction      `db:"recommended_action" json:"recommended_action"`
	Status            RecommendationStatus   `db:"status" json:"status" validate:"required"`
	Confidence        ConfidenceLevel        `db:"confidence" json:"confidence"`
	ImplementedAt     *time.Time             `db:"implemented_at" json:"implemented_at"`
	ImplementedBy     string                 `db:"implemented_by" json:"implemented_by"`
	DismissedAt       *time.Time             `db:"dismissed_at" json:"dismissed_at"`
	DismissedBy       string                 `db:"dismissed_by" json:"dismissed_by"`
	DismissedReason   string                 `db:"dismissed_reason" json:"dismissed_reason"`
	MeasurementPeriod *MeasurementPeriod     `db:"measurement_period" json:"measurement_period"`
	ActualImpact      *ImpactEstimate        `db:"actual_impact" json:"actual_impact"`
	ExpiresAt         time.Time              `db:"expires_at" json:"expires_at"`
	CreatedAt         time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `db:"updated_at" json:"updated_at"`
}

// IsActionable reports whether the recommendation can still be implemented or dismissed
func (r *YieldRecommendation) IsActionable() bool {
	return r.Status == RecommendationStatusPending
}

// IsExpired reports whether the recommendation has passed its expiry timestamp
func (r *YieldRecommendation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
