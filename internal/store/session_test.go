package store

import (
	"testing"

	"github.com/ashverma/pledge/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.UserID != u.ID {
		t.Errorf("user id = %d, want %d", got.UserID, u.ID)
	}
}

func TestSessionGetUnknownToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("no-such-token")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")
	sess, _ := ss.Create(u.ID)

	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionTokensUnique(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")

	a, _ := ss.Create(u.ID)
	b, _ := ss.Create(u.ID)
	if a.Token == b.Token {
		t.Error("expected distinct tokens for distinct sessions")
	}
}
