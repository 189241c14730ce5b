package database

import (
	"context"
	"fmt"

	"github.com/yourusername/yield-engine/internal/config"
)

// Initialize creates a database connection pool and verifies the engine's
// schema is present
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// The engine reads the events table the ingestion pipeline writes; make
	// sure migrations have been applied before serving anything.
	var exists bool
	err = db.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'experiments')",
	).Scan(&exists)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if !exists {
		db.Close()
		return nil, fmt.Errorf("experiments table not found: run database migrations before starting")
	}

	return db, nil
}
