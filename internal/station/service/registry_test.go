package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Techsolutions2024/RFID/internal/station/service"
	"github.com/Techsolutions2024/RFID/internal/station/store"
	"github.com/Techsolutions2024/RFID/internal/station/store/memory"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

func TestCardRegistry_AddAndAuthorize(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	registry := service.NewCardRegistry(memory.NewCardStore(), notifier, testLogger())

	if err := registry.Add(ctx, "ab12cd34", "Front door badge"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !registry.IsAuthorized("AB12CD34") {
		t.Error("expected canonical uid to be authorized")
	}
	if !registry.IsAuthorized(" ab 12 cd 34 ") {
		t.Error("expected lookup to canonicalize the uid")
	}
	if registry.IsAuthorized("FFFFFFFF") {
		t.Error("unknown uid must not be authorized")
	}

	cards, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 || cards[0].UID != "AB12CD34" || cards[0].Name != "Front door badge" {
		t.Errorf("unexpected cards: %+v", cards)
	}

	notifier.mu.Lock()
	snaps := len(notifier.cardSnap)
	notifier.mu.Unlock()
	if snaps != 1 {
		t.Errorf("expected one cardsUpdated notification, got %d", snaps)
	}
}

func TestCardRegistry_AddValidation(t *testing.T) {
	ctx := context.Background()
	registry := service.NewCardRegistry(memory.NewCardStore(), nil, testLogger())

	if err := registry.Add(ctx, "   ", "name"); !errors.Is(err, service.ErrInvalidUID) {
		t.Errorf("expected ErrInvalidUID, got %v", err)
	}
	if err := registry.Add(ctx, "AB12CD34", "  "); !errors.Is(err, service.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestCardRegistry_Rename(t *testing.T) {
	ctx := context.Background()
	registry := service.NewCardRegistry(memory.NewCardStore(), nil, testLogger())

	if err := registry.Rename(ctx, "AB12CD34", "New name"); !errors.Is(err, store.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}

	if err := registry.Add(ctx, "AB12CD34", "Old name"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Rename(ctx, "AB12CD34", "New name"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	cards, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "New name" {
		t.Errorf("rename not applied: %+v", cards)
	}
}

func TestCardRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	registry := service.NewCardRegistry(memory.NewCardStore(), nil, testLogger())

	if err := registry.Add(ctx, "AB12CD34", "Badge"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Remove(ctx, "AB12CD34"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if registry.IsAuthorized("AB12CD34") {
		t.Error("removed card must not stay authorized")
	}

	// Removing a card that is already gone is not an error.
	if err := registry.Remove(ctx, "AB12CD34"); err != nil {
		t.Errorf("repeat remove: %v", err)
	}
}

func TestCardRegistry_LoadRefreshesMirror(t *testing.T) {
	ctx := context.Background()
	st := memory.NewCardStore()
	if err := st.Upsert(ctx, types.AuthorizedCard{UID: "AB12CD34", Name: "Seeded"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	registry := service.NewCardRegistry(st, nil, testLogger())
	if registry.IsAuthorized("AB12CD34") {
		t.Fatal("mirror must be empty before Load")
	}
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !registry.IsAuthorized("AB12CD34") {
		t.Error("expected seeded card after Load")
	}
}
