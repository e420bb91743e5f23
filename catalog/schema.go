package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// tableName is the catalog's single table, given a short, unqualified
// name since the table already lives in a dedicated per-buffer database
// file rather than a shared schema.
const tableName = "records"

// ensureSchema creates the records table if it does not already exist.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+tableName+` (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			priority INTEGER NOT NULL,
			hash     TEXT NOT NULL,
			size     INTEGER NOT NULL,
			on_disk  BOOLEAN NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_records_hash ON `+tableName+` (hash)`)
	if err != nil {
		return fmt.Errorf("create hash index: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_records_tier_priority ON `+tableName+` (on_disk, priority)`)
	if err != nil {
		return fmt.Errorf("create tier/priority index: %w", err)
	}

	return nil
}
