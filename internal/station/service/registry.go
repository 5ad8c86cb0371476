package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/store"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

var (
	ErrInvalidUID  = errors.New("card uid is required")
	ErrInvalidName = errors.New("card name is required")
)

// CardRegistry owns the authorized-card set: the durable store plus an
// in-memory uid mirror for O(1) authorization checks on the scan path.
// The mirror is loaded once at startup and updated under the registry
// lock with every successful mutation, so IsAuthorized never diverges
// from acknowledged writes.  The cardsUpdated notification is emitted
// under the same lock, before the mutating call returns, so observers
// never see a list that predates a confirmed write.
type CardRegistry struct {
	store    store.CardStore
	notifier Notifier
	logger   *log.Logger

	mu     sync.RWMutex
	mirror map[string]struct{}
}

func NewCardRegistry(st store.CardStore, notifier Notifier, logger *log.Logger) *CardRegistry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CardRegistry{
		store:    st,
		notifier: notifier,
		logger:   logger,
		mirror:   make(map[string]struct{}),
	}
}

// Load refreshes the mirror from the durable store.  Called once at startup.
func (r *CardRegistry) Load(ctx context.Context) error {
	cards, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load authorized cards: %w", err)
	}

	mirror := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		mirror[c.UID] = struct{}{}
	}

	r.mu.Lock()
	r.mirror = mirror
	r.mu.Unlock()

	r.logger.Printf("loaded %d authorized cards", len(cards))
	return nil
}

// IsAuthorized consults only the mirror; it never touches durable storage.
func (r *CardRegistry) IsAuthorized(uid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mirror[types.CanonicalUID(uid)]
	return ok
}

func (r *CardRegistry) Add(ctx context.Context, uid, name string) error {
	uid = types.CanonicalUID(uid)
	if uid == "" {
		return ErrInvalidUID
	}
	name = trimName(name)
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	card := types.AuthorizedCard{UID: uid, Name: name, CreatedAt: time.Now().UTC()}
	if err := r.store.Upsert(ctx, card); err != nil {
		return err
	}
	r.mirror[uid] = struct{}{}

	r.notifyChanged(ctx)
	return nil
}

// Rename updates a card's display name.  An unknown uid reports
// store.ErrCardNotFound rather than silently succeeding.
func (r *CardRegistry) Rename(ctx context.Context, uid, name string) error {
	uid = types.CanonicalUID(uid)
	if uid == "" {
		return ErrInvalidUID
	}
	name = trimName(name)
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Rename(ctx, uid, name); err != nil {
		return err
	}

	r.notifyChanged(ctx)
	return nil
}

func (r *CardRegistry) Remove(ctx context.Context, uid string) error {
	uid = types.CanonicalUID(uid)
	if uid == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, uid); err != nil {
		return err
	}
	delete(r.mirror, uid)

	r.notifyChanged(ctx)
	return nil
}

func (r *CardRegistry) List(ctx context.Context) ([]types.AuthorizedCard, error) {
	return r.store.List(ctx)
}

// notifyChanged pushes the refreshed card list to observers.  Caller must
// hold the registry lock so the snapshot reflects the just-applied write.
func (r *CardRegistry) notifyChanged(ctx context.Context) {
	cards, err := r.store.List(ctx)
	if err != nil {
		r.logger.Printf("card list snapshot: %v", err)
		return
	}
	r.notifier.CardsUpdated(cards)
}

func trimName(s string) string {
	return strings.TrimSpace(s)
}
