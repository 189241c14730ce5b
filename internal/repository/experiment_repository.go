package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
)

const (
	errScanExperiment = "failed to scan experiment: %w"
	errScanArm        = "failed to scan arm: %w"

	experimentColumns = `id, publisher_id, name, description, status, start_date, end_date,
		parent_experiment_id, parent_arm_id, level, created_at, updated_at`
	armColumns = `id, experiment_id, name, traffic_share, is_control, overrides, created_at, updated_at`
)

// PostgresExperimentRepository implements ExperimentRepository for PostgreSQL
type PostgresExperimentRepository struct {
	db *database.DB
}

// NewPostgresExperimentRepository creates a new experiment repository
func NewPostgresExperimentRepository(db *database.DB) ExperimentRepository {
	return &PostgresExperimentRepository{db: db}
}

// CreateWithArms inserts the experiment and all of its arms in one transaction
func (r *PostgresExperimentRepository) CreateWithArms(ctx context.Context, experiment *models.Experiment) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO experiments (id, publisher_id, name, description, status, start_date,
				end_date, parent_experiment_id, parent_arm_id, level)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			experiment.ID, experiment.PublisherID, experiment.Name, experiment.Description,
			experiment.Status, experiment.StartDate, experiment.EndDate,
			experiment.ParentExperimentID, experiment.ParentArmID, experiment.Level,
		)
		if err != nil {
			return fmt.Errorf("failed to create experiment: %w", err)
		}

		for _, arm := range experiment.Arms {
			if err := insertArm(ctx, tx, arm); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertArm(ctx context.Context, tx pgx.Tx, arm *models.Arm) error {
	overrides, err := marshalOverrides(arm.Overrides)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO experiment_arms (id, experiment_id, name, traffic_share, is_control, overrides)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := tx.Exec(ctx, query,
		arm.ID, arm.ExperimentID, arm.Name, arm.TrafficShare, arm.IsControl, overrides,
	); err != nil {
		return fmt.Errorf("failed to create arm: %w", err)
	}

	return nil
}

// GetByID retrieves an experiment by ID with its arms attached
func (r *PostgresExperimentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Experiment, error) {
	query := fmt.Sprintf("SELECT %s FROM experiments WHERE id = $1", experimentColumns)

	experiment, err := scanExperimentRow(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewNotFoundError("experiment", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	arms, err := r.GetArmsByExperimentID(ctx, id)
	if err != nil {
		return nil, err
	}
	experiment.Arms = arms

	return experiment, nil
}

// GetArm retrieves a single arm by ID
func (r *PostgresExperimentRepository) GetArm(ctx context.Context, armID uuid.UUID) (*models.Arm, error) {
	query := fmt.Sprintf("SELECT %s FROM experiment_arms WHERE id = $1", armColumns)

	arm, err := scanArmRow(r.db.GetPool().QueryRow(ctx, query, armID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewNotFoundError("arm", armID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get arm: %w", err)
	}

	return arm, nil
}

// GetArmsByExperimentID retrieves all arms of an experiment
func (r *PostgresExperimentRepository) GetArmsByExperimentID(ctx context.Context, experimentID uuid.UUID) ([]*models.Arm, error) {
	query := fmt.Sprintf("SELECT %s FROM experiment_arms WHERE experiment_id = $1 ORDER BY created_at ASC", armColumns)

	rows, err := r.db.GetPool().Query(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query arms: %w", err)
	}
	defer rows.Close()

	var arms []*models.Arm
	for rows.Next() {
		arm, err := scanArmRow(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanArm, err)
		}
		arms = append(arms, arm)
	}

	return arms, rows.Err()
}

// Update updates the mutable fields of an experiment
func (r *PostgresExperimentRepository) Update(ctx context.Context, experiment *models.Experiment) error {
	query := `
		UPDATE experiments SET
			name = $2, description = $3, status = $4, start_date = $5, end_date = $6,
			updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		experiment.ID, experiment.Name, experiment.Description, experiment.Status,
		experiment.StartDate, experiment.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.NewNotFoundError("experiment", experiment.ID.String())
	}

	return nil
}

// UpdateArm updates a single arm. Cross-arm invariants are intentionally not
// re-checked here; see Registry.ValidateExperiment for the read-only check.
func (r *PostgresExperimentRepository) UpdateArm(ctx context.Context, arm *models.Arm) error {
	overrides, err := marshalOverrides(arm.Overrides)
	if err != nil {
		return err
	}

	query := `
		UPDATE experiment_arms SET
			name = $2, traffic_share = $3, is_control = $4, overrides = $5, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		arm.ID, arm.Name, arm.TrafficShare, arm.IsControl, overrides,
	)
	if err != nil {
		return fmt.Errorf("failed to update arm: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.NewNotFoundError("arm", arm.ID.String())
	}

	return nil
}

// Delete removes an experiment and its arms. Experiments nested under the
// deleted experiment's arms are not touched.
func (r *PostgresExperimentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM experiment_arms WHERE experiment_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete arms: %w", err)
		}

		commandTag, err := tx.Exec(ctx, "DELETE FROM experiments WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete experiment: %w", err)
		}

		if commandTag.RowsAffected() == 0 {
			return models.NewNotFoundError("experiment", id.String())
		}

		return nil
	})
}

// ListByPublisher retrieves all experiments for a publisher, arms attached
func (r *PostgresExperimentRepository) ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.Experiment, error) {
	query := fmt.Sprintf("SELECT %s FROM experiments WHERE publisher_id = $1 ORDER BY created_at DESC", experimentColumns)
	return r.queryExperimentsWithArms(ctx, query, publisherID)
}

// ListByParent retrieves child experiments nested under a specific arm of a
// parent experiment, arms attached
func (r *PostgresExperimentRepository) ListByParent(ctx context.Context, parentExperimentID, parentArmID uuid.UUID) ([]*models.Experiment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM experiments WHERE parent_experiment_id = $1 AND parent_arm_id = $2 ORDER BY created_at ASC",
		experimentColumns,
	)
	return r.queryExperimentsWithArms(ctx, query, parentExperimentID, parentArmID)
}

func (r *PostgresExperimentRepository) queryExperimentsWithArms(ctx context.Context, query string, args ...interface{}) ([]*models.Experiment, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*models.Experiment
	for rows.Next() {
		experiment, err := scanExperimentRow(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanExperiment, err)
		}
		experiments = append(experiments, experiment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, experiment := range experiments {
		arms, err := r.GetArmsByExperimentID(ctx, experiment.ID)
		if err != nil {
			return nil, err
		}
		experiment.Arms = arms
	}

	return experiments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExperimentRow(row rowScanner) (*models.Experiment, error) {
	experiment := &models.Experiment{}
	err := row.Scan(
		&experiment.ID, &experiment.PublisherID, &experiment.Name, &experiment.Description,
		&experiment.Status, &experiment.StartDate, &experiment.EndDate,
		&experiment.ParentExperimentID, &experiment.ParentArmID, &experiment.Level,
		&experiment.CreatedAt, &experiment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

func scanArmRow(row rowScanner) (*models.Arm, error) {
	arm := &models.Arm{}
	var overrides []byte
	err := row.Scan(
		&arm.ID, &arm.ExperimentID, &arm.Name, &arm.TrafficShare, &arm.IsControl,
		&overrides, &arm.CreatedAt, &arm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		arm.Overrides = &models.ArmOverrides{}
		if err := json.Unmarshal(overrides, arm.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal arm overrides: %w", err)
		}
	}

	return arm, nil
}

func marshalOverrides(overrides *models.ArmOverrides) ([]byte, error) {
	if overrides == nil {
		return nil, nil
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arm overrides: %w", err)
	}
	return data, nil
}
