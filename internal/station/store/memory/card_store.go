package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/store"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// CardStore is an in-memory CardStore for tests and dev environments.
type CardStore struct {
	mu    sync.RWMutex
	cards map[string]types.AuthorizedCard
}

func NewCardStore() *CardStore {
	return &CardStore{cards: make(map[string]types.AuthorizedCard)}
}

func (s *CardStore) Upsert(_ context.Context, card types.AuthorizedCard) error {
	uid := strings.TrimSpace(card.UID)
	if uid == "" {
		return nil
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cards[uid]; ok {
		// Upsert keeps the original creation time.
		card.CreatedAt = existing.CreatedAt
	}
	card.UID = uid
	s.cards[uid] = card
	return nil
}

func (s *CardStore) Rename(_ context.Context, uid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[uid]
	if !ok {
		return store.ErrCardNotFound
	}
	card.Name = name
	s.cards[uid] = card
	return nil
}

func (s *CardStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cards, uid)
	return nil
}

func (s *CardStore) List(_ context.Context) ([]types.AuthorizedCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AuthorizedCard, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}
