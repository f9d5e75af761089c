package db

import (
	"context"
	"fmt"
)

// RunMigrations creates any missing tables, indexes and constraints.
func RunMigrations(ctx context.Context, db *DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every market table and recreates the schema.
// All existing rows are lost.
func Reset(ctx context.Context, db *DB) error {
	// DropTable walks its arguments in reverse, so items go before users.
	if err := db.WithContext(ctx).Migrator().DropTable(Models()...); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return RunMigrations(ctx, db)
}
