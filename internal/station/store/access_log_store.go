package store

import (
	"context"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// AccessLogStore persists access decisions as an append-only audit log.
type AccessLogStore interface {
	Append(ctx context.Context, entry types.AccessLogEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]types.AccessLogEntry, error)
	// PruneOlderThan deletes entries older than cutoff and returns the
	// number of rows removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
