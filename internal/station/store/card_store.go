package store

import (
	"context"
	"errors"

	"github.com/Techsolutions2024/RFID/internal/station/types"
)

var ErrCardNotFound = errors.New("card not found")

// CardStore persists the authorized-card set.  The in-memory authorization
// mirror is owned by the service layer; implementations only provide the
// durable operations.
type CardStore interface {
	// Upsert inserts or replaces a card by uid.
	Upsert(ctx context.Context, card types.AuthorizedCard) error
	// Rename updates the display name of an existing card.
	// Returns ErrCardNotFound if the uid is absent.
	Rename(ctx context.Context, uid, name string) error
	// Delete removes a card.  Deleting an absent uid is a no-op.
	Delete(ctx context.Context, uid string) error
	// List returns all cards, newest-created first.
	List(ctx context.Context) ([]types.AuthorizedCard, error)
}
