package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a couple of demo cards so a fresh dev database has
// something to grant.  Safe to run repeatedly.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	demo := []struct {
		uid  string
		name string
	}{
		{"AB12CD34", "Demo badge"},
		{"04A1B2C3D4", "Demo keyfob"},
	}

	for _, c := range demo {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO authorized_cards(uid, name, created_at_ms)
VALUES (?, ?, ?);`, c.uid, c.name, now); err != nil {
			return fmt.Errorf("seed card %s: %w", c.uid, err)
		}
	}

	return nil
}
