package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashverma/pledge/internal/model"
)

func TestProfileGet(t *testing.T) {
	f := setupHandlerTest(t)
	h := NewProfileHandler(f.users, nil, f.logger)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	rec := httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest("GET", "/api/profile", nil), u.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Email != "ashu@pledge.in" {
		t.Errorf("email = %q, want ashu@pledge.in", got.Email)
	}
	if got.JourneyStart == nil {
		t.Error("journey start should self-heal on first load")
	}

	// A second load keeps the original value.
	rec = httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest("GET", "/api/profile", nil), u.ID))
	var again model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if again.JourneyStart == nil || !again.JourneyStart.Equal(*got.JourneyStart) {
		t.Errorf("journey start = %v, want %v unchanged", again.JourneyStart, got.JourneyStart)
	}
}

func TestProfileUpdateSettings(t *testing.T) {
	f := setupHandlerTest(t)
	h := NewProfileHandler(f.users, nil, f.logger)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, asUser(httptest.NewRequest("PUT", "/api/profile/settings",
		strings.NewReader(`{"name": "Ashutosh", "pledge_goal": 90}`)), u.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	stored, _ := f.users.GetByID(u.ID)
	if stored.Name != "Ashutosh" || stored.PledgeGoal != 90 {
		t.Errorf("stored = %q/%d, want Ashutosh/90", stored.Name, stored.PledgeGoal)
	}
}

func TestProfileUpdateSettingsValidation(t *testing.T) {
	f := setupHandlerTest(t)
	h := NewProfileHandler(f.users, nil, f.logger)

	u, _ := f.users.Create("ashu@pledge.in", "Ashu", "secret123")

	for name, body := range map[string]string{
		"empty name":    `{"name": "  ", "pledge_goal": 90}`,
		"zero goal":     `{"name": "Ashu", "pledge_goal": 0}`,
		"negative goal": `{"name": "Ashu", "pledge_goal": -5}`,
		"invalid json":  `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.UpdateSettings(rec, asUser(httptest.NewRequest("PUT", "/api/profile/settings", strings.NewReader(body)), u.ID))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
