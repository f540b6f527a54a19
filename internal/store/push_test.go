package store

import (
	"testing"

	"github.com/ashverma/pledge/internal/database"
	"github.com/ashverma/pledge/internal/model"
)

func setupPushTestDB(t *testing.T) (*PushStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db), NewUserStore(db)
}

func TestPushSubscriptionUpsert(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")

	sub, err := ps.CreateSubscription(u.ID, "https://push.example/ep1", "p256dh-a", "auth-a", "phone")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	// Re-subscribing the same endpoint replaces the keys, not the row.
	sub2, err := ps.CreateSubscription(u.ID, "https://push.example/ep1", "p256dh-b", "auth-b", "phone")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if sub2.ID != sub.ID {
		t.Errorf("id = %d, want same row %d", sub2.ID, sub.ID)
	}
	if sub2.P256dhKey != "p256dh-b" {
		t.Errorf("p256dh = %q, want replaced key", sub2.P256dhKey)
	}

	subs, err := ps.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("len = %d, want 1", len(subs))
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")
	if _, err := ps.CreateSubscription(u.ID, "https://push.example/ep1", "k", "a", ""); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if err := ps.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, _ := ps.ListByUser(u.ID)
	if len(subs) != 0 {
		t.Errorf("len = %d, want 0", len(subs))
	}
}

func TestPushPreferenceDefaultsEnabled(t *testing.T) {
	ps, us := setupPushTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")

	enabled, err := ps.PreferenceEnabled(u.ID, model.NotifTypeCheckInReminder)
	if err != nil {
		t.Fatalf("preference enabled: %v", err)
	}
	if !enabled {
		t.Error("unset preference should default to enabled")
	}

	if err := ps.SetPreference(u.ID, model.NotifTypeCheckInReminder, false); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	enabled, err = ps.PreferenceEnabled(u.ID, model.NotifTypeCheckInReminder)
	if err != nil {
		t.Fatalf("preference enabled: %v", err)
	}
	if enabled {
		t.Error("preference should be disabled after opt-out")
	}
}
