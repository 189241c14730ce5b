// Package experiment provides the registry for hierarchical traffic-split
// experiments and their arms.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/repository"
)

// Registry stores and validates hierarchical experiment definitions
type Registry struct {
	repo   repository.ExperimentRepository
	logger *logrus.Logger
}

// NewRegistry creates a new experiment registry
func NewRegistry(repo repository.ExperimentRepository, logger *logrus.Logger) *Registry {
	return &Registry{repo: repo, logger: logger}
}

// ArmInput describes one arm of an experiment being created
type ArmInput struct {
	Name         string
	TrafficShare int
	IsControl    bool
	Overrides    *models.ArmOverrides
}

// ExperimentInput describes an experiment being created
type ExperimentInput struct {
	PublisherID        uuid.UUID
	Name               string
	Description        string
	Status             models.ExperimentStatus
	StartDate          *time.Time
	EndDate            *time.Time
	ParentExperimentID *uuid.UUID
	ParentArmID        *uuid.UUID
	Arms               []ArmInput
}

// ExperimentUpdate describes a partial experiment update; nil fields are unchanged
type ExperimentUpdate struct {
	Name        *string
	Description *string
	Status      *models.ExperimentStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// ArmUpdate describes a partial arm update; nil fields are unchanged
type ArmUpdate struct {
	Name         *string
	TrafficShare *int
	IsControl    *bool
	Overrides    *models.ArmOverrides
}

// CreateExperiment validates the definition and persists the experiment with
// its arms atomically. Cross-arm invariants (arm count, traffic-share sum,
// single control) are enforced here and only here.
func (r *Registry) CreateExperiment(ctx context.Context, input ExperimentInput) (*models.Experiment, error) {
	if err := validateArms(input.Arms); err != nil {
		return nil, err
	}

	level := 0
	if input.ParentExperimentID != nil {
		parent, err := r.repo.GetByID(ctx, *input.ParentExperimentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parent experiment: %w", err)
		}
		level = parent.Level + 1

		if input.ParentArmID != nil {
			arm, err := r.repo.GetArm(ctx, *input.ParentArmID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve parent arm: %w", err)
			}
			if arm.ExperimentID != parent.ID {
				return nil, models.NewNotFoundError("arm", input.ParentArmID.String())
			}
		}
	}

	status := input.Status
	if status == "" {
		status = models.ExperimentStatusDraft
	}

	now := time.Now().UTC()
	experiment := &models.Experiment{
		ID:                 uuid.New(),
		PublisherID:        input.PublisherID,
		Name:               input.Name,
		Description:        input.Description,
		Status:             status,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		ParentExperimentID: input.ParentExperimentID,
		ParentArmID:        input.ParentArmID,
		Level:              level,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for _, armInput := range input.Arms {
		experiment.Arms = append(experiment.Arms, &models.Arm{
			ID:           uuid.New(),
			ExperimentID: experiment.ID,
			Name:         armInput.Name,
			TrafficShare: armInput.TrafficShare,
			IsControl:    armInput.IsControl,
			Overrides:    armInput.Overrides,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := r.repo.CreateWithArms(ctx, experiment); err != nil {
		return nil, err
	}

	metrics.RecordExperimentCreated()
	r.logger.WithFields(logrus.Fields{
		"experiment_id": experiment.ID,
		"publisher_id":  experiment.PublisherID,
		"level":         experiment.Level,
		"arms":          len(experiment.Arms),
	}).Info("Experiment created")

	return experiment, nil
}

// GetExperiment retrieves an experiment with its arms attached
func (r *Registry) GetExperiment(ctx context.Context, id uuid.UUID) (*models.Experiment, error) {
	return r.repo.GetByID(ctx, id)
}

// UpdateExperiment applies a partial update. Cross-arm invariants are not
// re-validated; use ValidateExperiment for an explicit read-only check.
func (r *Registry) UpdateExperiment(ctx context.Context, id uuid.UUID, update ExperimentUpdate) (*models.Experiment, error) {
	experiment, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		experiment.Name = *update.Name
	}
	if update.Description != nil {
		experiment.Description = *update.Description
	}
	if update.Status != nil {
		experiment.Status = *update.Status
	}
	if update.StartDate != nil {
		experiment.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		experiment.EndDate = update.EndDate
	}

	if err := r.repo.Update(ctx, experiment); err != nil {
		return nil, err
	}

	return experiment, nil
}

// UpdateArm applies a partial update to a single arm. A later edit can leave
// the arm set inconsistent with the create-time invariants; that is accepted
// historical behavior.
func (r *Registry) UpdateArm(ctx context.Context, armID uuid.UUID, update ArmUpdate) (*models.Arm, error) {
	arm, err := r.repo.GetArm(ctx, armID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		arm.Name = *update.Name
	}
	if update.TrafficShare != nil {
		if *update.TrafficShare < 0 || *update.TrafficShare > 100 {
			return nil, models.NewValidationError("traffic_share",
				fmt.Sprintf("traffic share must be between 0 and 100, got %d", *update.TrafficShare))
		}
		arm.TrafficShare = *update.TrafficShare
	}
	if update.IsControl != nil {
		arm.IsControl = *update.IsControl
	}
	if update.Overrides != nil {
		arm.Overrides = update.Overrides
	}

	if err := r.repo.UpdateArm(ctx, arm); err != nil {
		return nil, err
	}

	return arm, nil
}

// DeleteExperiment removes the experiment and its arms. Deletion is
// non-cascading below one level: child experiments nested under the deleted
// experiment's arms are left in place, orphaned.
func (r *Registry) DeleteExperiment(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	metrics.ExperimentsDeletedTotal.Inc()
	r.logger.WithField("experiment_id", id).Info("Experiment deleted")
	return nil
}

// ListNestedExperiments returns child experiments nested under the given arm
// of the given experiment, each with its own arms attached
func (r *Registry) ListNestedExperiments(ctx context.Context, experimentID, armID uuid.UUID) ([]*models.Experiment, error) {
	return r.repo.ListByParent(ctx, experimentID, armID)
}

// Violation describes one invariant broken by post-creation arm edits
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidateExperiment re-checks the create-time invariants against the current
// arm set without failing any write. Returns the list of violations, empty
// when the experiment is still consistent.
func (r *Registry) ValidateExperiment(ctx context.Context, id uuid.UUID) ([]Violation, error) {
	experiment, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var violations []Violation

	if len(experiment.Arms) < 2 {
		violations = append(violations, Violation{
			Rule:    "arm-count",
			Message: fmt.Sprintf("experiment has %d arms, needs at least 2", len(experiment.Arms)),
		})
	}

	sum := 0
	controls := 0
	for _, arm := range experiment.Arms {
		sum += arm.TrafficShare
		if arm.IsControl {
			controls++
		}
	}

	if sum != 100 {
		violations = append(violations, Violation{
			Rule:    "traffic-sum",
			Message: fmt.Sprintf("traffic shares sum to %d, must equal 100", sum),
		})
	}
	if controls != 1 {
		violations = append(violations, Violation{
			Rule:    "single-control",
			Message: fmt.Sprintf("experiment has %d control arms, needs exactly 1", controls),
		})
	}

	return violations, nil
}

// validateArms enforces the create-time cross-arm invariants
func validateArms(arms []ArmInput) error {
	if len(arms) < 2 {
		return models.NewValidationError("arms", fmt.Sprintf("experiment needs at least 2 arms, got %d", len(arms)))
	}

	sum := 0
	controls := 0
	for _, arm := range arms {
		if arm.TrafficShare < 0 || arm.TrafficShare > 100 {
			return models.NewValidationError("traffic_share",
				fmt.Sprintf("arm %q traffic share %d is out of range [0,100]", arm.Name, arm.TrafficShare))
		}
		sum += arm.TrafficShare
		if arm.IsControl {
			controls++
		}
	}

	if sum != 100 {
		return models.NewValidationError("traffic_share", fmt.Sprintf("traffic shares must sum to exactly 100, got %d", sum))
	}
	if controls != 1 {
		return models.NewValidationError("is_control", fmt.Sprintf("exactly one arm must be control, got %d", controls))
	}

	return nil
}
