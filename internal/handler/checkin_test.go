package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ashverma/pledge/internal/model"
)

func newCheckInHandler(f *handlerFixture) *CheckInHandler {
	return NewCheckInHandler(f.checkins, f.users, f.partnerships, nil, nil, f.logger)
}

func postCheckIn(t *testing.T, h *CheckInHandler, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, asUser(httptest.NewRequest("POST", "/api/checkins", strings.NewReader(body)), userID))
	return rec
}

func TestCheckInCreateStartsStreak(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, err := f.users.Create("ashu@pledge.in", "Ashu", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := postCheckIn(t, h, u.ID, `{"status": "SUCCESS", "note": "day one", "mood": "Strong"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp checkInResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Log == nil || resp.Log.Status != model.StatusSuccess || resp.Log.Note != "day one" {
		t.Errorf("log = %+v, want SUCCESS with note", resp.Log)
	}
	if resp.Profile == nil || resp.Profile.CurrentStreak != 1 || resp.Profile.BestStreak != 1 {
		t.Errorf("profile streaks = %+v, want 1/1", resp.Profile)
	}
	if resp.Profile.JourneyStart == nil {
		t.Error("journey start should be set by the first check-in")
	}

	// The profile update was persisted, not just echoed.
	stored, err := f.users.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.CurrentStreak != 1 {
		t.Errorf("stored streak = %d, want 1", stored.CurrentStreak)
	}
}

func TestCheckInCreateSameDayIdempotent(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	postCheckIn(t, h, u.ID, `{"status": "SUCCESS"}`)
	rec := postCheckIn(t, h, u.ID, `{"status": "SUCCESS"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	stored, _ := f.users.GetByID(u.ID)
	if stored.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1 after repeat success on the same day", stored.CurrentStreak)
	}

	logs, _ := f.checkins.ListByUser(u.ID)
	if len(logs) != 2 {
		t.Errorf("logs = %d, want 2; every check-in is recorded", len(logs))
	}
}

func TestCheckInCreateRelapseResetsStreak(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	postCheckIn(t, h, u.ID, `{"status": "SUCCESS"}`)
	rec := postCheckIn(t, h, u.ID, `{"status": "RELAPSE", "mood": "Relapsed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	stored, _ := f.users.GetByID(u.ID)
	if stored.CurrentStreak != 0 {
		t.Errorf("current streak = %d, want 0 after relapse", stored.CurrentStreak)
	}
	if stored.BestStreak != 1 {
		t.Errorf("best streak = %d, want 1 preserved", stored.BestStreak)
	}
}

func TestCheckInCreateValidation(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	for name, body := range map[string]string{
		"unknown status": `{"status": "MAYBE"}`,
		"empty status":   `{"note": "no status"}`,
		"unknown mood":   `{"status": "SUCCESS", "mood": "Ecstatic"}`,
		"invalid json":   `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postCheckIn(t, h, u.ID, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCheckInViewRequiresPartnership(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	owner, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")
	viewer, _ := f.users.Create("mayank@pledge.in", "Mayank", "secret456")
	postCheckIn(t, h, owner.ID, `{"status": "SUCCESS"}`)

	get := func(userID int64) *httptest.ResponseRecorder {
		req := asUser(httptest.NewRequest("GET", "/api/users/"+strconv.FormatInt(owner.ID, 10)+"/checkins", nil), userID)
		req.SetPathValue("id", strconv.FormatInt(owner.ID, 10))
		rec := httptest.NewRecorder()
		h.ListForUser(rec, req)
		return rec
	}

	// Self access always passes.
	if rec := get(owner.ID); rec.Code != http.StatusOK {
		t.Errorf("self view status = %d, want 200", rec.Code)
	}

	// Stranger is rejected.
	if rec := get(viewer.ID); rec.Code != http.StatusForbidden {
		t.Errorf("stranger view status = %d, want 403", rec.Code)
	}

	// An accepted partnership in either direction grants access.
	p, err := f.partnerships.Create(owner.ID, viewer.Email)
	if err != nil {
		t.Fatalf("create partnership: %v", err)
	}
	if _, err := f.partnerships.Accept(p.ID); err != nil {
		t.Fatalf("accept partnership: %v", err)
	}
	if rec := get(viewer.ID); rec.Code != http.StatusOK {
		t.Errorf("partner view status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckInStats(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")
	postCheckIn(t, h, u.ID, `{"status": "SUCCESS"}`)

	req := asUser(httptest.NewRequest("GET", "/api/users/1/stats", nil), u.ID)
	req.SetPathValue("id", strconv.FormatInt(u.ID, 10))
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", resp.CurrentStreak)
	}
	if resp.PledgeGoal != model.DefaultPledgeGoal {
		t.Errorf("pledge goal = %d, want default %d", resp.PledgeGoal, model.DefaultPledgeGoal)
	}
	if resp.Summary.SuccessCount != 1 || resp.Summary.SuccessRate != 100 {
		t.Errorf("summary = %+v, want one success at 100%%", resp.Summary)
	}
}

func TestCheckInCalendarEmptyBeforeFirstCheckIn(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	req := asUser(httptest.NewRequest("GET", "/api/users/1/calendar", nil), u.ID)
	req.SetPathValue("id", strconv.FormatInt(u.ID, 10))
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want empty array before the journey starts", body)
	}
}

func TestCheckInListEmptyIsArray(t *testing.T) {
	f := setupHandlerTest(t)
	h := newCheckInHandler(f)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest("GET", "/api/checkins", nil), u.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want [] not null", body)
	}
}
