package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/Techsolutions2024/RFID/internal/db"
	"github.com/Techsolutions2024/RFID/internal/station/store"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

type CardStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCardStore(db *sql.DB, writer *dbpkg.Worker) *CardStore {
	return &CardStore{db: db, writer: writer}
}

func (s *CardStore) Upsert(ctx context.Context, card types.AuthorizedCard) error {
	uid := strings.TrimSpace(card.UID)
	if uid == "" {
		return nil
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	createdMs := card.CreatedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO authorized_cards(uid, name, created_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
  name = excluded.name;
`, uid, card.Name, createdMs); err != nil {
			return fmt.Errorf("Upsert card %s: %w", uid, err)
		}
		return nil
	})
}

func (s *CardStore) Rename(ctx context.Context, uid, name string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return store.ErrCardNotFound
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE authorized_cards SET name = ? WHERE uid = ?;
`, name, uid)
		if err != nil {
			return fmt.Errorf("Rename card %s: %w", uid, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Rename rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrCardNotFound
		}
		return nil
	})
}

func (s *CardStore) Delete(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM authorized_cards WHERE uid = ?;
`, uid); err != nil {
			return fmt.Errorf("Delete card %s: %w", uid, err)
		}
		return nil
	})
}

func (s *CardStore) List(ctx context.Context) ([]types.AuthorizedCard, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT uid, name, created_at_ms
FROM authorized_cards
ORDER BY created_at_ms DESC, uid;
`)
	if err != nil {
		return nil, fmt.Errorf("List cards query: %w", err)
	}
	defer rows.Close()

	var out []types.AuthorizedCard
	for rows.Next() {
		var (
			card      types.AuthorizedCard
			createdMs int64
		)
		if err := rows.Scan(&card.UID, &card.Name, &createdMs); err != nil {
			return nil, fmt.Errorf("List cards scan: %w", err)
		}
		card.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List cards rows: %w", err)
	}
	return out, nil
}
