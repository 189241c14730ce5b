package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
)

const bidderConfigColumns = `publisher_id, bidder_code, enabled, timeout_ms`

// PostgresBidderConfigRepository implements BidderConfigRepository for PostgreSQL
type PostgresBidderConfigRepository struct {
	db *database.DB
}

// NewPostgresBidderConfigRepository creates a new bidder configuration repository
func NewPostgresBidderConfigRepository(db *database.DB) BidderConfigRepository {
	return &PostgresBidderConfigRepository{db: db}
}

// ListPublishers retrieves every publisher with at least one configured bidder
func (r *PostgresBidderConfigRepository) ListPublishers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.GetPool().Query(ctx, "SELECT DISTINCT publisher_id FROM bidder_configs ORDER BY publisher_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query publishers: %w", err)
	}
	defer rows.Close()

	var publishers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan publisher id: %w", err)
		}
		publishers = append(publishers, id)
	}

	return publishers, rows.Err()
}

// ListByPublisher retrieves all bidder configurations for a publisher
func (r *PostgresBidderConfigRepository) ListByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.BidderConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM bidder_configs WHERE publisher_id = $1 ORDER BY bidder_code ASC", bidderConfigColumns)

	rows, err := r.db.GetPool().Query(ctx, query, publisherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bidder configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.BidderConfig
	for rows.Next() {
		cfg := &models.BidderConfig{}
		if err := rows.Scan(&cfg.PublisherID, &cfg.BidderCode, &cfg.Enabled, &cfg.TimeoutMS); err != nil {
			return nil, fmt.Errorf("failed to scan bidder config: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// Get retrieves a single bidder configuration
func (r *PostgresBidderConfigRepository) Get(ctx context.Context, publisherID uuid.UUID, bidderCode string) (*models.BidderConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM bidder_configs WHERE publisher_id = $1 AND bidder_code = $2", bidderConfigColumns)

	cfg := &models.BidderConfig{}
	err := r.db.GetPool().QueryRow(ctx, query, publisherID, bidderCode).Scan(
		&cfg.PublisherID, &cfg.BidderCode, &cfg.Enabled, &cfg.TimeoutMS,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewNotFoundError("bidder config", bidderCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder config: %w", err)
	}

	return cfg, nil
}

// SetEnabled toggles the enabled flag for a bidder
func (r *PostgresBidderConfigRepository) SetEnabled(ctx context.Context, publisherID uuid.UUID, bidderCode string, enabled bool) error {
	query := "UPDATE bidder_configs SET enabled = $3, updated_at = NOW() WHERE publisher_id = $1 AND bidder_code = $2"

	commandTag, err := r.db.GetPool().Exec(ctx, query, publisherID, bidderCode, enabled)
	if err != nil {
		return fmt.Errorf("failed to set bidder enabled flag: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.NewNotFoundError("bidder config", bidderCode)
	}

	return nil
}

// SetTimeout sets the timeout override for a bidder
func (r *PostgresBidderConfigRepository) SetTimeout(ctx context.Context, publisherID uuid.UUID, bidderCode string, timeoutMS int) error {
	query := "UPDATE bidder_configs SET timeout_ms = $3, updated_at = NOW() WHERE publisher_id = $1 AND bidder_code = $2"

	commandTag, err := r.db.GetPool().Exec(ctx, query, publisherID, bidderCode, timeoutMS)
	if err != nil {
		return fmt.Errorf("failed to set bidder timeout: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.NewNotFoundError("bidder config", bidderCode)
	}

	return nil
}
