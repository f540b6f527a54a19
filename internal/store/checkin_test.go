package store

import (
	"testing"
	"time"

	"github.com/ashverma/pledge/internal/database"
	"github.com/ashverma/pledge/internal/model"
)

func setupCheckInTestDB(t *testing.T) (*CheckInStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCheckInStore(db), NewUserStore(db)
}

func TestCheckInAppend(t *testing.T) {
	cs, us := setupCheckInTestDB(t)

	u, err := us.Create("ashu@pledge.in", "Ashu", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	at := time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)
	u.CurrentStreak = 1
	u.BestStreak = 1
	u.LastCheckInDate = &at
	u.JourneyStart = &at

	l, err := cs.Append(model.CheckInLog{
		UserID: u.ID,
		Date:   at,
		Status: model.StatusSuccess,
		Note:   "day one",
		Mood:   "Strong",
	}, *u)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if l.ID == "" {
		t.Error("expected generated log ID")
	}
	if l.Status != model.StatusSuccess {
		t.Errorf("status = %q, want SUCCESS", l.Status)
	}

	// Profile fields were written in the same transaction.
	stored, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.CurrentStreak != 1 || stored.BestStreak != 1 {
		t.Errorf("streaks = %d/%d, want 1/1", stored.CurrentStreak, stored.BestStreak)
	}
	if stored.LastCheckInDate == nil || !stored.LastCheckInDate.Equal(at) {
		t.Errorf("last check-in = %v, want %v", stored.LastCheckInDate, at)
	}
	if stored.JourneyStart == nil || !stored.JourneyStart.Equal(at) {
		t.Errorf("journey start = %v, want %v", stored.JourneyStart, at)
	}
}

func TestCheckInListByUserOrder(t *testing.T) {
	cs, us := setupCheckInTestDB(t)

	u, err := us.Create("ashu@pledge.in", "Ashu", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	for day := 1; day <= 3; day++ {
		at := time.Date(2026, 1, day, 9, 0, 0, 0, time.UTC)
		prof := *u
		prof.LastCheckInDate = &at
		if _, err := cs.Append(model.CheckInLog{UserID: u.ID, Date: at, Status: model.StatusSuccess}, prof); err != nil {
			t.Fatalf("append day %d: %v", day, err)
		}
	}

	logs, err := cs.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("len = %d, want 3", len(logs))
	}
	// Most recent first.
	if !logs[0].Date.After(logs[1].Date) || !logs[1].Date.After(logs[2].Date) {
		t.Errorf("logs not ordered most recent first: %v, %v, %v", logs[0].Date, logs[1].Date, logs[2].Date)
	}
}

func TestCheckInListScopedToUser(t *testing.T) {
	cs, us := setupCheckInTestDB(t)

	a, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")
	b, _ := us.Create("mayank@pledge.in", "Mayank", "secret456")

	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	if _, err := cs.Append(model.CheckInLog{UserID: a.ID, Date: at, Status: model.StatusSuccess}, *a); err != nil {
		t.Fatalf("append: %v", err)
	}

	logs, err := cs.ListByUser(b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("len = %d, want 0 for other user", len(logs))
	}
}

func TestCheckInCountOnDay(t *testing.T) {
	cs, us := setupCheckInTestDB(t)

	u, _ := us.Create("ashu@pledge.in", "Ashu", "secret123")

	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if _, err := cs.Append(model.CheckInLog{UserID: u.ID, Date: day.Add(9 * time.Hour), Status: model.StatusSuccess}, *u); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := cs.Append(model.CheckInLog{UserID: u.ID, Date: day.Add(-2 * time.Hour), Status: model.StatusSuccess}, *u); err != nil {
		t.Fatalf("append previous day: %v", err)
	}

	n, err := cs.CountOnDay(u.ID, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
