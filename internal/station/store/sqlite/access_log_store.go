package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/Techsolutions2024/RFID/internal/db"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, entry types.AccessLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	tsMs := entry.Timestamp.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_log(ts_ms, direction, card_uid, status)
VALUES (?, ?, ?, ?);
`, tsMs, string(entry.Direction), entry.CardUID, string(entry.Status)); err != nil {
			return fmt.Errorf("Append access log: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) Recent(ctx context.Context, limit int) ([]types.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT ts_ms, direction, card_uid, status
FROM access_log
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLogEntry
	for rows.Next() {
		var (
			entry     types.AccessLogEntry
			tsMs      int64
			direction string
			status    string
		)
		if err := rows.Scan(&tsMs, &direction, &entry.CardUID, &status); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		entry.Timestamp = time.UnixMilli(tsMs).UTC()
		entry.Direction = types.Direction(direction)
		entry.Status = types.AccessStatus(status)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent rows: %w", err)
	}
	return out, nil
}

// PruneOlderThan deletes log rows with ts_ms before the given cutoff.
// Uses the idx_access_log_time index for an efficient range scan.
func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM access_log
WHERE ts_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
