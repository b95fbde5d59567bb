package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.Get("orders"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: expected ErrNotFound, got %v", err)
	}

	subs := []Subscription{
		{Flow: "orders", WebhookID: "id-orders", CallbackURL: "https://x/webhook/id-orders", Event: "create", CreatedAt: created},
		{Flow: "invoices", WebhookID: "id-invoices", CallbackURL: "https://x/webhook/id-invoices", Event: "update", CreatedAt: created},
	}
	for _, sub := range subs {
		if err := s.Put(sub); err != nil {
			t.Fatalf("Put %s: %v", sub.Flow, err)
		}
	}

	got, err := s.Get("orders")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.WebhookID != "id-orders" || !got.CreatedAt.Equal(created) || got.Active() {
		t.Fatalf("unexpected subscription: %+v", got)
	}

	got.ActivatedAt = created.Add(time.Minute)
	if err := s.Put(got); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	found, err := s.FindByWebhookID("id-orders")
	if err != nil {
		t.Fatalf("FindByWebhookID: %v", err)
	}
	if !found.Active() {
		t.Fatalf("expected updated subscription to be active")
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Flow != "invoices" || list[1].Flow != "orders" {
		t.Fatalf("expected subscriptions sorted by flow, got %+v", list)
	}

	if err := s.Delete("orders"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.FindByWebhookID("id-orders"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted subscription to be gone, got %v", err)
	}

	if err := s.Put(Subscription{}); err == nil {
		t.Fatalf("expected error for subscription without flow")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "subs.db")
	s, err := NewStore("bbolt", path)
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}
	exerciseStore(t, s)

	if err := s.Put(Subscription{Flow: "kept", WebhookID: "id-kept"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore("bbolt", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get("kept"); err != nil {
		t.Fatalf("expected subscription to survive reopen: %v", err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", ""); err == nil {
		t.Fatalf("expected error for unknown store type")
	}
	if _, err := NewStore("bbolt", " "); err == nil {
		t.Fatalf("expected error for bbolt without a path")
	}
}
