package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
)

const (
	errScanRecommendation = "failed to scan recommendation: %w"

	recommendationColumns = `id, publisher_id, type, priority, title, description, data_snapshot,
		estimated_impact, target_entity, recommended_action, status, confidence,
		implemented_at, implemented_by, dismissed_at, dismissed_by, dismissed_reason,
		measurement_period, actual_impact, expires_at, created_at, updated_at`
)

// PostgresRecommendationRepository implements RecommendationRepository for PostgreSQL
type PostgresRecommendationRepository struct {
	db *database.DB
}

// NewPostgresRecommendationRepository creates a new recommendation repository
func NewPostgresRecommendationRepository(db *database.DB) RecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

// Create inserts a new recommendation
func (r *PostgresRecommendationRepository) Create(ctx context.Context, rec *models.YieldRecommendation) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return insertRecommendation(ctx, tx, rec)
	})
}

// CreateBatch inserts a batch of recommendations atomically, preserving order
func (r *PostgresRecommendationRepository) CreateBatch(ctx context.Context, recs []*models.YieldRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertRecommendation(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRecommendation(ctx context.Context, tx pgx.Tx, rec *models.YieldRecommendation) error {
	estimated, err := marshalNullable(rec.EstimatedImpact)
	if err != nil {
		return err
	}
	action, err := json.Marshal(rec.RecommendedAction)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended action: %w", err)
	}
	period, err := marshalNullable(rec.MeasurementPeriod)
	if err != nil {
		return err
	}
	actual, err := marshalNullable(rec.ActualImpact)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO yield_recommendations (id, publisher_id, type, priority, title, description,
			data_snapshot, estimated_impact, target_entity, recommended_action, status,
			confidence, measurement_period, actual_impact, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if _, err := tx.Exec(ctx, query,
		rec.ID, rec.PublisherID, rec.Type, rec.Priority, rec.Title, rec.Description,
		[]byte(rec.DataSnapshot), estimated, rec.TargetEntity, action, rec.Status,
		rec.Confidence, period, actual, rec.ExpiresAt,
	); err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}

	return nil
}

// GetByID retrieves a recommendation by ID
func (r *PostgresRecommendationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.YieldRecommendation, error) {
	query := fmt.Sprintf("SELECT %s FROM yield_recommendations WHERE id = $1", recommendationColumns)

	rec, err := scanRecommendationRow(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewNotFoundError("recommendation", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}

	return rec, nil
}

// Update rewrites the mutable state of a recommendation
func (r *PostgresRecommendationRepository) Update(ctx context.Context, rec *models.YieldRecommendation) error {
	period, err := marshalNullable(rec.MeasurementPeriod)
	if err != nil {
		return err
	}
	actual, err := marshalNullable(rec.ActualImpact)
	if err != nil {
		return err
	}

	query := `
		UPDATE yield_recommendations SET
			status = $2, implemented_at = $3, implemented_by = $4, dismissed_at = $5,
			dismissed_by = $6, dismissed_reason = $7, measurement_period = $8,
			actual_impact = $9, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		rec.ID, rec.Status, rec.ImplementedAt, rec.ImplementedBy, rec.DismissedAt,
		rec.DismissedBy, rec.DismissedReason, period, actual,
	)
	if err != nil {
		return fmt.Errorf("failed to update recommendation: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.NewNotFoundError("recommendation", rec.ID.String())
	}

	return nil
}

// List retrieves recommendations matching the filter, newest first
func (r *PostgresRecommendationRepository) List(ctx context.Context, filter RecommendationFilter) ([]*models.YieldRecommendation, error) {
	query := fmt.Sprintf("SELECT %s FROM yield_recommendations WHERE 1=1", recommendationColumns)
	args := make([]interface{}, 0, 3)

	if filter.PublisherID != nil {
		args = append(args, *filter.PublisherID)
		query += fmt.Sprintf(" AND publisher_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*models.YieldRecommendation
	for rows.Next() {
		rec, err := scanRecommendationRow(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanRecommendation, err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// ExpirePending marks pending recommendations past their expiry as expired
func (r *PostgresRecommendationRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE yield_recommendations
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expires_at < $3
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		models.RecommendationStatusExpired, models.RecommendationStatusPending, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire recommendations: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

func scanRecommendationRow(row rowScanner) (*models.YieldRecommendation, error) {
	rec := &models.YieldRecommendation{}
	var snapshot, estimated, action, period, actual []byte

	err := row.Scan(
		&rec.ID, &rec.PublisherID, &rec.Type, &rec.Priority, &rec.Title, &rec.Description,
		&snapshot, &estimated, &rec.TargetEntity, &action, &rec.Status, &rec.Confidence,
		&rec.ImplementedAt, &rec.ImplementedBy, &rec.DismissedAt, &rec.DismissedBy,
		&rec.DismissedReason, &period, &actual, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.DataSnapshot = json.RawMessage(snapshot)
	if err := unmarshalJSON(estimated, &rec.EstimatedImpact); err != nil {
		return nil, err
	}
	if len(action) > 0 {
		if err := json.Unmarshal(action, &rec.RecommendedAction); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommended action: %w", err)
		}
	}
	if err := unmarshalJSON(period, &rec.MeasurementPeriod); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(actual, &rec.ActualImpact); err != nil {
		return nil, err
	}

	return rec, nil
}

// marshalNullable encodes an optional JSONB column, mapping nil to SQL NULL
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON column: %w", err)
	}
	return data, nil
}

// unmarshalJSON decodes a nullable JSONB column into a pointer-to-pointer target
func unmarshalJSON[T any](data []byte, target **T) error {
	if len(data) == 0 {
		return nil
	}
	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}
	*target = value
	return nil
}
