package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/models"
)

const (
	errScanEvent = "failed to scan event: %w"

	eventColumns = `id, publisher_id, kind, bidder_code, cpm, latency_ms, timeout, timestamp`
)

// PostgresEventRepository implements EventRepository for PostgreSQL. The events
// table is written by the ingestion pipeline; this engine only reads it.
type PostgresEventRepository struct {
	db *database.DB
}

// NewPostgresEventRepository creates a new event repository
func NewPostgresEventRepository(db *database.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

// GetByKind retrieves events of one kind for a publisher within a time window,
// in ingestion order
func (r *PostgresEventRepository) GetByKind(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time) ([]*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bid_events
		WHERE publisher_id = $1 AND kind = $2 AND timestamp >= $3 AND timestamp <= $4
		ORDER BY timestamp ASC
	`, eventColumns)

	return r.queryEvents(ctx, query, publisherID, kind, start, end)
}

// GetByKindForBidder retrieves events of one kind for a single bidder
func (r *PostgresEventRepository) GetByKindForBidder(ctx context.Context, publisherID uuid.UUID, kind models.EventKind, start, end time.Time, bidderCode string) ([]*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bid_events
		WHERE publisher_id = $1 AND kind = $2 AND timestamp >= $3 AND timestamp <= $4 AND bidder_code = $5
		ORDER BY timestamp ASC
	`, eventColumns)

	return r.queryEvents(ctx, query, publisherID, kind, start, end, bidderCode)
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		err := rows.Scan(
			&event.ID, &event.PublisherID, &event.Kind, &event.BidderCode,
			&event.CPM, &event.LatencyMS, &event.Timeout, &event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanEvent, err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
